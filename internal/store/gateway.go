package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/sadopc/rollday/internal/dates"
	"github.com/sadopc/rollday/internal/state"
)

// DocumentKey is where the state document lives.
const DocumentKey = "rollday:v1"

// BlobStore is the durable key/value surface the gateway needs. *Store
// implements it.
type BlobStore interface {
	ReadDocument(key string) ([]byte, error)
	WriteDocument(key string, body []byte) error
}

// quarantiner is implemented by stores that can keep unparsable bodies.
type quarantiner interface {
	Quarantine(key string, body []byte, reason string) error
}

// Gateway loads and saves the whole AppState. Load never fails and Save
// never panics; problems are logged and reported to the caller.
type Gateway struct {
	blobs  BlobStore
	clock  dates.Clock
	logger *log.Logger
}

func NewGateway(blobs BlobStore, clock dates.Clock, logger *log.Logger) *Gateway {
	if clock == nil {
		clock = dates.SystemClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Gateway{blobs: blobs, clock: clock, logger: logger.WithPrefix("store")}
}

// Load reads the stored document. A missing, unreadable or corrupt document
// yields the empty state. Corrupt entries are dropped and listed in the
// report; when any entry was migrated the cleaned state is written back.
func (g *Gateway) Load() (state.AppState, state.Report) {
	body, err := g.blobs.ReadDocument(DocumentKey)
	if err != nil {
		g.logger.Warn("read failed, starting empty", "err", err)
		return state.Empty(), state.Report{}
	}
	if body == nil {
		return state.Empty(), state.Report{}
	}

	st, rep, err := state.ParseDocument(body, g.clock.Now())
	if err != nil {
		g.logger.Warn("corrupt document, starting empty", "err", err)
		var docErr *state.DocumentError
		if q, ok := g.blobs.(quarantiner); ok && errors.As(err, &docErr) {
			if qerr := q.Quarantine(DocumentKey, body, docErr.Reason); qerr != nil {
				g.logger.Error("quarantine failed", "err", qerr)
			}
		}
		return state.Empty(), state.Report{}
	}

	for _, date := range rep.Dropped {
		g.logger.Warn("dropped corrupt entry", "date", date)
	}
	if rep.NeedsRewrite() {
		g.logger.Info("migrated legacy entries", "count", len(rep.Migrated))
		// Save already logs its failure; the loaded state is still good.
		_ = g.Save(st)
	}
	return st, rep
}

// Save serializes st and writes it. A failure is logged and returned; the
// caller keeps running with its in-memory state.
func (g *Gateway) Save(st state.AppState) error {
	if st.EntriesByDate == nil {
		st = state.Empty()
	}
	st.Version = state.Version
	body, err := json.Marshal(st)
	if err != nil {
		g.logger.Error("encode failed", "err", err)
		return fmt.Errorf("encode state: %w", err)
	}
	if err := g.blobs.WriteDocument(DocumentKey, body); err != nil {
		g.logger.Error("write failed", "err", err)
		return fmt.Errorf("save state: %w", err)
	}
	g.logger.Debug("saved", "entries", st.Len())
	return nil
}
