package dictionary

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrKeywordExists      = errors.New("keyword already exists")
	ErrAbbreviationExists = errors.New("abbreviation already exists")
)

// Record is one keyword with its standardized abbreviation.
type Record struct {
	ID           int64     `db:"id" json:"-" yaml:"-"`
	Keyword      string    `db:"keyword" json:"keyword" yaml:"keyword"`
	Abbreviation string    `db:"abbreviation" json:"abbreviation" yaml:"abbreviation"`
	Description  string    `db:"description" json:"description" yaml:"description"`
	CreatedAt    time.Time `db:"created_at" json:"-" yaml:"-"`
}

// EmbedText returns the text that represents the record in the similarity index.
func (r Record) EmbedText() string {
	return fmt.Sprintf("Keyword: %s | Abbreviation: %s | Description: %s", r.Keyword, r.Abbreviation, r.Description)
}
