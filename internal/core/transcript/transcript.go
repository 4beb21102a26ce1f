// Package transcript exports conversations to YAML files for later viewing.
// Transcripts are write-only from the mailbox's point of view: nothing here
// restores a conversation into a mailbox.
package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/filemanager"
)

// FileExt is the extension of transcript files
const FileExt = ".yaml"

// Transcript is the on-disk record of one conversation
type Transcript struct {
	ID        string            `json:"id" yaml:"id"`
	StartedAt time.Time         `json:"startedAt" yaml:"startedAt"`
	UpdatedAt time.Time         `json:"updatedAt" yaml:"updatedAt"`
	EndedAt   *time.Time        `json:"endedAt,omitempty" yaml:"endedAt,omitempty"`
	Outcome   *Outcome          `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Messages  []mailbox.Message `json:"messages" yaml:"messages"`
}

// Outcome values
const (
	OutcomeSuccess        = "success"
	OutcomePartialSuccess = "partial_success"
	OutcomeFailure        = "failure"
)

// Satisfaction values
const (
	SatisfactionSatisfied    = "satisfied"
	SatisfactionNeutral      = "neutral"
	SatisfactionDissatisfied = "dissatisfied"
)

// Outcome is the recorded result of a negotiation
type Outcome struct {
	Result       string    `json:"result" yaml:"result"`
	Resolution   string    `json:"resolution" yaml:"resolution"`
	Satisfaction string    `json:"satisfaction" yaml:"satisfaction"`
	RecordedAt   time.Time `json:"recordedAt" yaml:"recordedAt"`
}

// Validate checks Result and Satisfaction against the known values
func (o Outcome) Validate() error {
	switch o.Result {
	case OutcomeSuccess, OutcomePartialSuccess, OutcomeFailure:
	default:
		return fmt.Errorf("invalid outcome %q (want %s, %s or %s)",
			o.Result, OutcomeSuccess, OutcomePartialSuccess, OutcomeFailure)
	}
	switch o.Satisfaction {
	case SatisfactionSatisfied, SatisfactionNeutral, SatisfactionDissatisfied:
	default:
		return fmt.Errorf("invalid satisfaction %q (want %s, %s or %s)",
			o.Satisfaction, SatisfactionSatisfied, SatisfactionNeutral, SatisfactionDissatisfied)
	}
	return nil
}

// Ended reports whether the conversation was finished
func (t *Transcript) Ended() bool {
	return t.EndedAt != nil
}

// Count returns the number of messages per origin
func (t *Transcript) Count(origin mailbox.Origin) int {
	n := 0
	for _, msg := range t.Messages {
		if msg.Origin == origin {
			n++
		}
	}
	return n
}

// merge adds msg unless a message with the same ID is already recorded and
// keeps messages ordered by timestamp
func (t *Transcript) merge(msg mailbox.Message) {
	for _, existing := range t.Messages {
		if existing.ID == msg.ID {
			return
		}
	}
	t.Messages = append(t.Messages, msg)
	sort.SliceStable(t.Messages, func(i, j int) bool {
		return t.Messages[i].Timestamp.Before(t.Messages[j].Timestamp)
	})
}

// Summary is the listing entry for a transcript file
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Path      string    `json:"path" yaml:"path"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	Messages  int       `json:"messages" yaml:"messages"`
	Ended     bool      `json:"ended" yaml:"ended"`
}

// PathFor returns the file path of conversation id inside dir
func PathFor(dir, id string) string {
	return filepath.Join(dir, id+FileExt)
}

// Load reads a transcript file
func Load(ctx context.Context, path string) (*Transcript, error) {
	t, err := filemanager.NewManager[Transcript]().Read(ctx, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Ref: path}
		}
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return t, nil
}

// Resolve finds a transcript in dir by full ID, unique ID prefix or path
func Resolve(dir, ref string) (string, error) {
	if strings.HasSuffix(ref, FileExt) {
		if _, err := os.Stat(ref); err == nil {
			return ref, nil
		}
	}

	summaries, err := List(context.Background(), dir)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, s := range summaries {
		if s.ID == ref {
			return s.Path, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s.Path)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("transcript reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// List returns summaries of every transcript in dir, most recently updated
// first. A missing directory yields an empty list.
func List(ctx context.Context, dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}

	files := filemanager.NewManager[Transcript]()
	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != FileExt {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		t, err := files.Read(ctx, path)
		if err != nil {
			// Skip files that are not transcripts
			continue
		}

		summaries = append(summaries, Summary{
			ID:        t.ID,
			Path:      path,
			StartedAt: t.StartedAt,
			UpdatedAt: t.UpdatedAt,
			Messages:  len(t.Messages),
			Ended:     t.Ended(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes a transcript file
func Delete(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &NotFoundError{Ref: path}
	}
	return filemanager.NewManager[Transcript]().Delete(ctx, path)
}

// NotFoundError is returned when a transcript cannot be located
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transcript not found: %s", e.Ref)
}
