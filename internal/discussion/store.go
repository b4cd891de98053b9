package discussion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kohaku-io/agora/internal/concurrency"
	"github.com/kohaku-io/agora/internal/errs"
	"github.com/kohaku-io/agora/internal/message"
)

// Store provides append-only access to discussion logs under one
// base directory. It is safe for use from multiple goroutines; the
// lock file coordinates with other processes on the same filesystem.
type Store struct {
	baseDir  string
	lockOpts LockOptions

	// onAppend, when set, is invoked asynchronously with the
	// discussion id after every successful append. Used for result
	// file refreshes; failures are the hook's problem.
	onAppend func(id string)
}

type Option func(*Store)

func WithLockOptions(opts LockOptions) Option {
	return func(s *Store) { s.lockOpts = opts }
}

func WithAppendHook(fn func(id string)) Option {
	return func(s *Store) { s.onAppend = fn }
}

func NewStore(baseDir string, opts ...Option) (*Store, error) {
	resolved, err := ResolveBaseDir(baseDir)
	if err != nil {
		return nil, errs.Wrap(err, "resolve base dir")
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return nil, errs.Wrap(err, "create base dir")
	}

	s := &Store{
		baseDir:  resolved,
		lockOpts: DefaultLockOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) BaseDir() string {
	return s.baseDir
}

// SetAppendHook registers the post-append refresh callback.
func (s *Store) SetAppendHook(fn func(id string)) {
	s.onAppend = fn
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Create writes a new discussion log containing the sole start
// record at seq 1. It fails with ErrConflict if the log exists.
func (s *Store) Create(topic string, participants []string, context map[string]string) (string, message.Message, error) {
	if strings.TrimSpace(topic) == "" {
		return "", message.Message{}, errs.InvalidInput("topic is empty")
	}
	if len(participants) < 2 {
		return "", message.Message{}, errs.InvalidInput("at least two participants required")
	}

	id := NewID()
	start := message.Message{
		Seq:          1,
		TS:           nowStamp(),
		From:         message.UserSender,
		Type:         message.TypeStart,
		Topic:        topic,
		Participants: participants,
		Context:      context,
	}

	line, err := message.Encode(start)
	if err != nil {
		return "", message.Message{}, errs.Wrap(err, "encode start message")
	}

	f, err := os.OpenFile(LogPath(s.baseDir, id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", message.Message{}, errs.Conflict(fmt.Sprintf("discussion %s already exists", id))
		}
		return "", message.Message{}, errs.Wrap(err, "create discussion log")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", message.Message{}, errs.Wrap(err, "write start message")
	}
	if err := f.Sync(); err != nil {
		return "", message.Message{}, errs.Wrap(err, "sync discussion log")
	}

	s.fireAppendHook(id)
	return id, start, nil
}

// Append stamps seq, ts and (for round-less follow-ups) the round,
// then appends the record under the cross-process lock. The lock is
// held for the whole read-modify-append sequence and never across
// anything slower.
func (s *Store) Append(id string, m message.Message) (message.Message, error) {
	if m.From == "" || m.Type == "" {
		return message.Message{}, errs.InvalidInput("message requires from and type")
	}

	release, err := acquireLock(LockPath(s.baseDir, id), s.lockOpts)
	if err != nil {
		return message.Message{}, err
	}
	defer release()

	existing, err := s.readAllLocked(id)
	if err != nil {
		return message.Message{}, err
	}
	if len(existing) == 0 {
		return message.Message{}, errs.NotFound(fmt.Sprintf("discussion %s does not exist", id))
	}

	lastSeq := existing[len(existing)-1].Seq
	m.Seq = lastSeq + 1
	m.TS = nowStamp()

	if m.Type == message.TypeFollowup && m.Round == 0 {
		m.Round = HighestResponseRound(existing) + 1
	}

	line, err := message.Encode(m)
	if err != nil {
		return message.Message{}, errs.Wrap(err, "encode message")
	}

	f, err := os.OpenFile(LogPath(s.baseDir, id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return message.Message{}, errs.Wrap(err, "open discussion log")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return message.Message{}, errs.Wrap(err, "append message")
	}
	if err := f.Sync(); err != nil {
		return message.Message{}, errs.Wrap(err, "sync discussion log")
	}

	s.fireAppendHook(id)
	return m, nil
}

func (s *Store) fireAppendHook(id string) {
	if s.onAppend == nil {
		return
	}
	hook := s.onAppend
	concurrency.SafeGo(func() { hook(id) }, nil)
}

// ReadAll returns every parseable record in file order. A missing
// log yields an empty slice, not an error.
func (s *Store) ReadAll(id string) ([]message.Message, error) {
	return s.readAllLocked(id)
}

func (s *Store) readAllLocked(id string) ([]message.Message, error) {
	data, err := os.ReadFile(LogPath(s.baseDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "read discussion log")
	}
	return message.ParseLines(data), nil
}

// Effective truncates a message sequence after the first end record;
// readers ignore anything that follows it.
func Effective(msgs []message.Message) []message.Message {
	for i, m := range msgs {
		if m.Type == message.TypeEnd {
			return msgs[:i+1]
		}
	}
	return msgs
}

// HighestResponseRound returns the maximum round over response
// records, or 0 when none exist.
func HighestResponseRound(msgs []message.Message) int {
	highest := 0
	for _, m := range Effective(msgs) {
		if m.Type == message.TypeResponse && m.Round > highest {
			highest = m.Round
		}
	}
	return highest
}

// List enumerates discussion ids present in the base directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errs.Wrap(err, "read base dir")
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
	}
	sort.Strings(ids)
	return ids, nil
}

// LastActivity returns the log file's mtime, used for watcher
// prioritization. Missing files report the zero time.
func (s *Store) LastActivity(id string) time.Time {
	info, err := os.Stat(LogPath(s.baseDir, id))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Exists reports whether the discussion log file is present.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(LogPath(s.baseDir, id))
	return err == nil
}

// Remove deletes a discussion's log, lock and result files. Used by
// the janitor when archiving.
func (s *Store) Remove(id string) error {
	for _, path := range []string{
		LogPath(s.baseDir, id),
		LockPath(s.baseDir, id),
		ResultPath(s.baseDir, id),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(err, "remove "+filepath.Base(path))
		}
	}
	return nil
}
