package models

// ThreadModel is a community forum thread. Views and LikesCount are the
// durable mirrors of the Redis counters; the cache is authoritative for
// likes, the views column is written through on the first view per window
// and repaired by the sync job.
type ThreadModel struct {
	Base
	UserID     uint   `json:"user_id"     gorm:"index;not null"`
	Title      string `json:"title"       gorm:"not null"`
	Content    string `json:"content"     gorm:"type:longtext"`
	Views      int64  `json:"views"       gorm:"not null;default:0"`
	LikesCount int64  `json:"likes_count" gorm:"not null;default:0"`

	Author *UserModel `json:"author,omitempty" gorm:"foreignKey:UserID"`
}

func (ThreadModel) TableName() string { return "threads" }
