// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

// Lifecycle states. Draft is never observed externally: creation advances a
// post straight to PendingApproval in the same insert.
const (
	StatusDraft           PostStatus = "draft"
	StatusPendingApproval PostStatus = "pending_approval"
	StatusApproved        PostStatus = "approved"
	StatusRejected        PostStatus = "rejected"
	StatusPublished       PostStatus = "published"
	StatusFailed          PostStatus = "failed"
)

// Closed reports whether the status is terminal: only reads are permitted
// against a closed post.
func (s PostStatus) Closed() bool {
	return s == StatusPublished || s == StatusRejected || s == StatusFailed
}

// Post represents one unit of the review-and-publish cycle.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ThemeID  string `gorm:"not null;index" json:"theme_id"`
	Theme    string `gorm:"not null" json:"theme"`
	Hook     string `gorm:"type:text;not null" json:"hook"`
	Caption  string `gorm:"type:text;not null" json:"caption"`
	Hashtags string `gorm:"type:text;not null" json:"hashtags"`
	AltText  string `gorm:"type:text" json:"alt_text"`
	// ImagePrompt is a suggestion for a complementary image; the service never
	// generates images itself.
	ImagePrompt string     `gorm:"type:text" json:"image_prompt"`
	CTA         string     `gorm:"type:text" json:"cta"`
	Status      PostStatus `gorm:"not null;default:pending_approval;index" json:"status"`
	// ApprovalToken is the bearer capability for this post. Minted once at
	// creation, never regenerated, never reused across posts.
	ApprovalToken   string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	InstagramPostID string     `json:"instagram_post_id,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	// Metadata is a free-form JSON blob (generation cost accounting and the
	// like); never consulted by the state machine.
	Metadata string `gorm:"type:text;default:'{}'" json:"metadata,omitempty"`
}
