// Package cascade deletes a parent row together with every row that references it,
// deepest dependents first, inside a single transaction.
package cascade

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
)

// ErrDependentRows is returned by a Store when a delete is refused because other rows still reference it.
var ErrDependentRows = errors.New("rows still referenced by other records")

type (
	// Store runs the two primitive statements a cascade is made of.
	// Table and column names only ever come from the rules in this package.
	Store interface {
		SelectIDs(ctx context.Context, exec core.DBExecutor, table, column string, values []int) ([]int, error)
		DeleteWhere(ctx context.Context, exec core.DBExecutor, table, column string, values []int) (int64, error)
	}

	// Observer is notified of every finished cascade; outcome is "ok", "not_found" or "failed".
	Observer interface {
		ObserveCascade(entity, outcome string)
	}

	Deleter struct {
		tx       core.Transactor
		store    Store
		logger   core.Logger
		observer Observer
	}
)

func NewDeleter(tx core.Transactor, store Store, logger core.Logger, observer Observer) *Deleter {
	return &Deleter{tx: tx, store: store, logger: logger, observer: observer}
}

// Delete removes the entity row identified by id and all its dependents in one transaction.
// Authorization must be checked by the caller before calling Delete.
// A failing step rolls everything back and is reported as a *core.ConflictError;
// a parent row that is already gone is core.ErrNotFound.
func (d *Deleter) Delete(ctx context.Context, entity Entity, id int) error {
	rule, ok := rules[entity]
	if !ok {
		return errors.Errorf("cascade: no rule for %q", entity)
	}

	err := d.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		return d.run(ctx, exec, rule, id)
	})

	if d.observer != nil {
		outcome := "ok"
		switch {
		case err == nil:
		case errors.Cause(err) == core.ErrNotFound:
			outcome = "not_found"
		default:
			outcome = "failed"
		}
		d.observer.ObserveCascade(string(entity), outcome)
	}
	return err
}

func (d *Deleter) run(ctx context.Context, exec core.DBExecutor, rule Rule, id int) error {
	sets := map[string][]int{root: {id}}

	for i, step := range rule.Steps {
		values := sets[step.From]
		if len(values) == 0 {
			// nothing references the parent through this path
			if step.Collect != "" {
				sets[step.Collect] = nil
			}
			continue
		}

		if step.Collect != "" {
			ids, err := d.store.SelectIDs(ctx, exec, step.Table, step.Column, values)
			if err != nil {
				return d.stepFailed(rule, i, step, values, err)
			}
			sets[step.Collect] = ids
			continue
		}

		if _, err := d.store.DeleteWhere(ctx, exec, step.Table, step.Column, values); err != nil {
			return d.stepFailed(rule, i, step, values, err)
		}
	}

	n, err := d.store.DeleteWhere(ctx, exec, rule.Table, "id", []int{id})
	if err != nil {
		return d.stepFailed(rule, len(rule.Steps), Step{Table: rule.Table, Column: "id"}, []int{id}, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (d *Deleter) stepFailed(rule Rule, idx int, step Step, values []int, err error) error {
	action := "delete"
	if step.Collect != "" {
		action = "select"
	}
	d.logger.Error(
		fmt.Sprintf("cascade delete of %s aborted at step %d", rule.Entity, idx+1),
		map[string]interface{}{
			"entity": string(rule.Entity),
			"action": action,
			"table":  step.Table,
			"column": step.Column,
			"ids":    values,
		},
		err,
	)
	return core.NewConflictError(rule.Message, errors.Wrapf(err, "%s %s where %s in %v", action, step.Table, step.Column, values))
}
