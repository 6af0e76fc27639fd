package model

import "time"

// Freet はユーザーが投稿する短文。
type Freet struct {
	ID           string    `bson:"_id"`
	AuthorID     string    `bson:"authorId"`
	Content      string    `bson:"content"`
	DateCreated  time.Time `bson:"dateCreated"`
	DateModified time.Time `bson:"dateModified"`
	Version      int       `bson:"__v"`
}

// PopulatedFreet はauthorId参照を解決済みのFreet。
type PopulatedFreet struct {
	Freet
	Author *User
}
