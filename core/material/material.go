package material

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/tenant"
)

// folder is the key prefix of every uploaded material object.
const folder = "materials"

type Material struct {
	ID         int         `json:"id" db:"id"`
	Title      string      `json:"title" db:"title"`
	FilePath   string      `json:"file_path" db:"file_path"` // public URL
	FileType   string      `json:"file_type" db:"file_type"`
	CoverPath  null.String `json:"cover_path" db:"cover_path"` // public URL
	ChurchID   null.Int    `json:"church_id" db:"church_id"`
	ChurchName null.String `json:"church_name" db:"church_name"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// File is an uploaded file as received from the client.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Upload struct {
	Title    string `form:"title" validate:"notblank"`
	ChurchID *int   `form:"church_id" validate:"omitempty,min=1"`
	File     *File  `form:"file"`
	Cover    *File  `form:"cover"`
}

func (up *Upload) Validate(validate *validator.Validate) error {
	up.Title = core.CleanString(up.Title)
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.File == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no file uploaded"})
	}
	return nil
}

// DeleteResult tells whether the stored files could be removed along with the row.
type DeleteResult struct {
	StorageWarning string `json:"storage_warning,omitempty"`
}

type (
	// Repository stores material rows. A non-nil scope restricts queries to rows of that church.
	Repository interface {
		QueryMaterials(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]Material, error)
		GetMaterial(ctx context.Context, id int, exec ...core.DBExecutor) (Material, error)
		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
	}

	// Storage keeps the uploaded objects. Satisfied by objectstore.Store.
	Storage interface {
		Put(ctx context.Context, key, contentType string, r io.Reader) error
		Remove(ctx context.Context, key string) error
		PublicURL(key string) string
		KeyFromURL(u string) (string, error)
	}

	Service struct {
		repo          Repository
		churches      church.Repository
		storage       Storage
		deleter       *cascade.Deleter
		logger        core.Logger
		coverMaxWidth int
	}
)

var _ church.FileJanitor = (*Service)(nil)

func NewService(repo Repository, churches church.Repository, storage Storage, deleter *cascade.Deleter, logger core.Logger, coverMaxWidth int) *Service {
	return &Service{
		repo:          repo,
		churches:      churches,
		storage:       storage,
		deleter:       deleter,
		logger:        logger,
		coverMaxWidth: coverMaxWidth,
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// objectKey returns a unique key for filename: materials/<yyyymmdd>-<uuid>-<sanitized name>.
func objectKey(filename string) string {
	safe := unsafeChars.ReplaceAllString(filename, "_")
	return fmt.Sprintf("%s/%s-%s-%s", folder, time.Now().Format("20060102"), uuid.New().String(), safe)
}

func (svc *Service) List(ctx context.Context, p tenant.Principal) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, p.Scope())
}

// Upload stores the file (and its cover) then records the material. Masters only.
// Objects already stored are removed again when a later step fails.
func (svc *Service) Upload(ctx context.Context, p tenant.Principal, up Upload) (Material, error) {
	if err := p.RequireMaster(); err != nil {
		return Material{}, err
	}

	var requested int
	if up.ChurchID != nil {
		requested = *up.ChurchID
	}
	churchID := p.Stamp(requested)
	if churchID != 0 {
		if _, err := svc.churches.GetChurch(ctx, churchID); err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return Material{}, core.NewValidationError(nil, core.FieldError{Field: "church_id", Error: "church does not exist"})
			}
			return Material{}, errors.Wrap(err, "finding church")
		}
	}

	var cover *File
	if up.Cover != nil {
		var err error
		if cover, err = svc.shrinkCover(up.Cover); err != nil {
			return Material{}, err
		}
	}

	var stored []string
	rollback := func() {
		for _, key := range stored {
			if err := svc.storage.Remove(ctx, key); err != nil {
				svc.logger.Warn("removing orphan material object", map[string]interface{}{"key": key}, err)
			}
		}
	}

	contentType := up.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	mainKey := objectKey(up.File.Name)
	if err := svc.storage.Put(ctx, mainKey, contentType, up.File.Body); err != nil {
		return Material{}, errors.Wrap(err, "uploading file")
	}
	stored = append(stored, mainKey)

	mat := Material{
		Title:    up.Title,
		FilePath: svc.storage.PublicURL(mainKey),
		FileType: contentType,
		ChurchID: null.NewInt(churchID, churchID != 0),
	}

	if cover != nil {
		coverKey := objectKey("cover_" + cover.Name)
		if err := svc.storage.Put(ctx, coverKey, cover.ContentType, cover.Body); err != nil {
			rollback()
			return Material{}, errors.Wrap(err, "uploading cover")
		}
		stored = append(stored, coverKey)
		mat.CoverPath = null.StringFrom(svc.storage.PublicURL(coverKey))
	}

	mat, err := svc.repo.CreateMaterial(ctx, mat)
	if err != nil {
		rollback()
		return Material{}, errors.Wrap(err, "saving material")
	}
	return mat, nil
}

// shrinkCover downscales JPEG & PNG covers wider than coverMaxWidth. Other files are kept as is.
func (svc *Service) shrinkCover(f *File) (*File, error) {
	var format imaging.Format
	switch strings.ToLower(f.ContentType) {
	case "image/jpeg", "image/jpg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return f, nil
	}

	img, err := imaging.Decode(f.Body)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "cover", Error: "cover is not a valid image"})
	}
	if svc.coverMaxWidth > 0 && img.Bounds().Dx() > svc.coverMaxWidth {
		img = imaging.Resize(img, svc.coverMaxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err = imaging.Encode(buf, img, format); err != nil {
		return nil, errors.Wrap(err, "encoding cover")
	}
	return &File{Name: f.Name, ContentType: f.ContentType, Body: buf}, nil
}

// Delete removes the material row, then its stored files. Masters only.
// The row is gone even when the files could not be removed: the result then carries a warning.
func (svc *Service) Delete(ctx context.Context, p tenant.Principal, id int) (DeleteResult, error) {
	if err := p.RequireMaster(); err != nil {
		return DeleteResult{}, err
	}
	mat, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if mat.ChurchID.Valid {
		if err = p.Authorize(mat.ChurchID.Int); err != nil {
			return DeleteResult{}, err
		}
	}

	if err = svc.deleter.Delete(ctx, cascade.Material, id); err != nil {
		return DeleteResult{}, err
	}

	urls := []string{mat.FilePath}
	if mat.CoverPath.Valid {
		urls = append(urls, mat.CoverPath.String)
	}
	if err = svc.RemoveFiles(ctx, urls...); err != nil {
		svc.logger.Warn("removing material files", map[string]interface{}{"material_id": id, "files": urls}, err)
		return DeleteResult{StorageWarning: "material deleted, but its files could not be removed from storage"}, nil
	}
	return DeleteResult{}, nil
}

// ChurchFiles lists the public URLs of every object stored for the church's materials.
func (svc *Service) ChurchFiles(ctx context.Context, churchID int) ([]string, error) {
	mats, err := svc.repo.QueryMaterials(ctx, &churchID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(mats))
	for _, m := range mats {
		urls = append(urls, m.FilePath)
		if m.CoverPath.Valid {
			urls = append(urls, m.CoverPath.String)
		}
	}
	return urls, nil
}

// RemoveFiles removes the objects behind urls, going on after a failure.
// The error, if any, lists every url that could not be removed.
func (svc *Service) RemoveFiles(ctx context.Context, urls ...string) error {
	var failed []string
	for _, u := range urls {
		key, err := svc.storage.KeyFromURL(u)
		if err == nil {
			err = svc.storage.Remove(ctx, key)
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", u, err))
		}
	}
	if len(failed) > 0 {
		return errors.Errorf("%d of %d files not removed: %s", len(failed), len(urls), strings.Join(failed, "; "))
	}
	return nil
}
