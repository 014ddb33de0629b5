package models

import "time"

// Relation is one directed follow edge: FromUser follows ToUser. The ordered
// pair is unique, so concurrent follows of the same pair collapse onto one
// row at the index. Edges are insert/delete only, never updated.
type Relation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FromUserID uint      `json:"from_user_id" gorm:"not null;index;uniqueIndex:idx_relations_from_to"`
	ToUserID   uint      `json:"to_user_id" gorm:"not null;index;uniqueIndex:idx_relations_from_to"`
	CreatedAt  time.Time `json:"created_at"`
}
