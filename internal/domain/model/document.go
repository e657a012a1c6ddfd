package model

import "time"

// Thread is the container a post belongs to.
type Thread struct {
	ID         int64  `yaml:"id" json:"id"`
	Title      string `yaml:"title" json:"title"`
	CategoryID int64  `yaml:"category_id" json:"category_id"`
	Visible    bool   `yaml:"visible" json:"visible"`
	Deleted    bool   `yaml:"deleted" json:"deleted"`
}

// SourceDocument is a read-only view of one forum post.
type SourceDocument struct {
	ID        int64     `yaml:"id" json:"id"`
	Body      string    `yaml:"body" json:"body"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	Deleted   bool      `yaml:"deleted" json:"deleted"`
	Thread    Thread    `yaml:"thread" json:"thread"`
}
