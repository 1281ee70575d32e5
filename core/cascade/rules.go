package cascade

type Entity string

const (
	Church   Entity = "church"
	Magazine Entity = "magazine"
	Lesson   Entity = "lesson"
	Class    Entity = "class"
	Teacher  Entity = "teacher"
	Student  Entity = "student"
	User     Entity = "user"
	Material Entity = "material"
)

// root names the id set holding the parent id.
const root = ""

type (
	// Step deletes the rows of Table whose Column is in the id set named From.
	// When Collect is set the step selects the ids of those rows into a new set instead.
	Step struct {
		Table   string
		Column  string
		From    string
		Collect string
	}

	// Rule lists, in order, what must go before the parent row of Table can be deleted.
	Rule struct {
		Entity  Entity
		Table   string
		Steps   []Step
		Message string
	}
)

var rules = map[Entity]Rule{
	Church: {
		Entity: Church,
		Table:  "churches",
		Steps: []Step{
			{Table: "attendance", Column: "church_id"},
			{Table: "teacher_schedule", Column: "church_id"},
			{Table: "materials", Column: "church_id"},
			{Table: "students", Column: "church_id"},
			{Table: "teachers", Column: "church_id"},
			{Table: "classes", Column: "church_id"},
			{Table: "users", Column: "church_id"},
		},
		Message: "could not delete church: it has dependent records (students, teachers or classes)",
	},
	Magazine: {
		Entity: Magazine,
		Table:  "magazines",
		Steps: []Step{
			{Table: "lessons", Column: "magazine_id", Collect: "lessons"},
			{Table: "attendance", Column: "lesson_id", From: "lessons"},
			{Table: "teacher_schedule", Column: "lesson_id", From: "lessons"},
			{Table: "lessons", Column: "id", From: "lessons"},
		},
		Message: "could not delete magazine: it has dependent records (lessons)",
	},
	Lesson: {
		Entity: Lesson,
		Table:  "lessons",
		Steps: []Step{
			{Table: "attendance", Column: "lesson_id"},
			{Table: "teacher_schedule", Column: "lesson_id"},
		},
		Message: "could not delete lesson: it has dependent records (attendance or schedule)",
	},
	Class: {
		Entity: Class,
		Table:  "classes",
		Steps: []Step{
			{Table: "students", Column: "class_id", Collect: "students"},
			{Table: "attendance", Column: "student_id", From: "students"},
			{Table: "students", Column: "id", From: "students"},
			{Table: "teachers", Column: "class_id", Collect: "teachers"},
			{Table: "teacher_schedule", Column: "teacher_id", From: "teachers"},
			{Table: "teachers", Column: "id", From: "teachers"},
			{Table: "teacher_schedule", Column: "class_id"},
		},
		Message: "could not delete class: it has dependent records (students or teachers)",
	},
	Teacher: {
		Entity: Teacher,
		Table:  "teachers",
		Steps: []Step{
			{Table: "teacher_schedule", Column: "teacher_id"},
		},
		Message: "could not delete teacher: it has dependent records (schedule)",
	},
	Student: {
		Entity: Student,
		Table:  "students",
		Steps: []Step{
			{Table: "attendance", Column: "student_id"},
		},
		Message: "could not delete student: it has dependent records (attendance)",
	},
	User: {
		Entity:  User,
		Table:   "users",
		Message: "could not delete user: it has dependent records",
	},
	Material: {
		Entity:  Material,
		Table:   "materials",
		Message: "could not delete material: it has dependent records",
	},
}

// RuleFor returns the deletion rule of entity.
func RuleFor(entity Entity) (Rule, bool) {
	r, ok := rules[entity]
	return r, ok
}
