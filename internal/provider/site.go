// Package provider contains the built-in task providers and their registry.
// Each provider pairs a read-only relevance predicate over the site's state
// with the metadata used to surface the task.
package provider

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Site is the narrow view of live site state that relevance predicates
// consult. Implementations must be read-only.
type Site interface {
	HasIcon() bool
	Tagline() string
	PendingCoreUpdates() int
	CommentsOpen() bool
	Posts() []Post
	HasPost(id string) bool
	PostsPublishedSince(t time.Time) int
}

type Post struct {
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	PublishedAt time.Time `yaml:"published_at" json:"publishedAt"`
	ModifiedAt  time.Time `yaml:"modified_at" json:"modifiedAt"`
}

// Snapshot is a fixed Site, loaded from YAML for the CLI and constructed
// directly in tests.
type Snapshot struct {
	Icon            bool   `yaml:"icon"`
	TaglineText     string `yaml:"tagline"`
	PendingUpdates  int    `yaml:"pending_updates"`
	CommentsEnabled bool   `yaml:"comments_open"`
	PostList        []Post `yaml:"posts"`
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse site snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Snapshot) HasIcon() bool {
	return s.Icon
}

func (s *Snapshot) Tagline() string {
	return s.TaglineText
}

func (s *Snapshot) PendingCoreUpdates() int {
	return s.PendingUpdates
}

func (s *Snapshot) CommentsOpen() bool {
	return s.CommentsEnabled
}

func (s *Snapshot) Posts() []Post {
	return s.PostList
}

func (s *Snapshot) HasPost(id string) bool {
	for _, p := range s.PostList {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Snapshot) PostsPublishedSince(t time.Time) int {
	count := 0
	for _, p := range s.PostList {
		if !p.PublishedAt.Before(t) {
			count++
		}
	}
	return count
}
