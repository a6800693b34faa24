package orm_engine

import (
	"time"

	engine "shotbench/benchmark/engines/abstract"

	"gorm.io/gorm"
)

// Context is a node of the project hierarchy.
type Context struct {
	ID          string  `gorm:"column:id;primaryKey"`
	ContextType string  `gorm:"column:context_type"`
	ParentID    *string `gorm:"column:parent_id"`
	Name        string  `gorm:"column:name"`
}

func (Context) TableName() string { return "context" }

type Project struct {
	ShowID          string     `gorm:"column:showid;primaryKey"`
	FullName        string     `gorm:"column:fullname"`
	Root            *string    `gorm:"column:root"`
	StartDate       *time.Time `gorm:"column:startdate"`
	EndDate         *time.Time `gorm:"column:enddate"`
	Status          *string    `gorm:"column:status"`
	DiskID          *string    `gorm:"column:diskid"`
	ProjectSchemeID *string    `gorm:"column:projectschemeid"`
	ThumbID         *string    `gorm:"column:thumbid"`
	IsGlobal        *bool      `gorm:"column:isglobal"`
	Context         Context    `gorm:"foreignKey:ShowID;references:ID"`
}

func (Project) TableName() string { return "show" }

// Task rows hold sequences, shots and tasks alike; object_typeid tells them apart.
type Task struct {
	TaskID       string     `gorm:"column:taskid;primaryKey"`
	Description  *string    `gorm:"column:description"`
	StartDate    *time.Time `gorm:"column:startdate"`
	EndDate      *time.Time `gorm:"column:enddate"`
	StatusID     *string    `gorm:"column:statusid"`
	TypeID       *string    `gorm:"column:typeid"`
	IsOpen       *bool      `gorm:"column:isopen"`
	ThumbID      *string    `gorm:"column:thumbid"`
	Sort         *float64   `gorm:"column:sort"`
	ObjectTypeID string     `gorm:"column:object_typeid"`
	ShowID       *string    `gorm:"column:showid"`
	PriorityID   *string    `gorm:"column:priorityid"`
	Context      Context    `gorm:"foreignKey:TaskID;references:ID"`
}

func (Task) TableName() string { return "task" }

func (t *Task) Name() string {
	return t.Context.Name
}

// OfType restricts a task query to one object type.
func OfType(objectTypeID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("task.object_typeid = ?", objectTypeID)
	}
}

var (
	Shots     = OfType(engine.ShotTypeID)
	Sequences = OfType(engine.SequenceTypeID)
)
