package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/memoriz/internal/auth"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/version"
)

const maxBodyBytes = 1 << 20

type healthResponse struct {
	AppName string       `json:"app_name"`
	Message string       `json:"message"`
	Version version.Info `json:"version"`
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}

func (s *Server) healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		AppName: version.AppName,
		Message: "Everything's fine !",
		Version: version.Get(),
	})
}

func (s *Server) versionInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// caller returns the authenticated user; the auth middleware guarantees it on /api routes.
func caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserIDFromCtx(r.Context())
	if !ok {
		writeText(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "uuid"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "bad uuid")
		return uuid.Nil, false
	}
	return id, true
}

// archivedFilter parses ?archived=; absent means no filter.
func archivedFilter(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get("archived")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("bad archived value %q", raw)
	}
	return &v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// --- Entries ---

func (s *Server) getAllEntries(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	archived, err := archivedFilter(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.svc.GetAllEntries(r.Context(), owner, archived)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getAllEntriesByBoard(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	board, ok := pathUUID(w, r)
	if !ok {
		return
	}
	archived, err := archivedFilter(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.svc.GetAllEntriesByBoard(r.Context(), owner, board, archived)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.GetEntry(r.Context(), owner, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	var in model.Entry
	if !decodeBody(w, r, &in) {
		return
	}
	e, err := s.svc.CreateEntry(r.Context(), owner, in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	var in model.Entry
	if !decodeBody(w, r, &in) {
		return
	}
	e, err := s.svc.UpdateEntry(r.Context(), owner, in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteEntry(r.Context(), owner, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) archiveEntry(w http.ResponseWriter, r *http.Request) {
	s.toggleArchive(w, r, s.svc.ArchiveEntry)
}

func (s *Server) undoArchiveEntry(w http.ResponseWriter, r *http.Request) {
	s.toggleArchive(w, r, s.svc.UndoArchiveEntry)
}

type entryOp func(ctx context.Context, owner, id uuid.UUID) (model.Entry, error)

func (s *Server) toggleArchive(w http.ResponseWriter, r *http.Request, op entryOp) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	e, err := op(r.Context(), owner, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	entries, err := s.svc.Search(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Boards ---

func (s *Server) getAllBoards(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	boards, err := s.svc.GetAllBoards(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	b, err := s.svc.GetBoard(r.Context(), owner, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createBoard(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	var in model.Board
	if !decodeBody(w, r, &in) {
		return
	}
	b, err := s.svc.CreateBoard(r.Context(), owner, in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBoard(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	var in model.Board
	if !decodeBody(w, r, &in) {
		return
	}
	b, err := s.svc.UpdateBoard(r.Context(), owner, in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBoard(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteBoard(r.Context(), owner, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- Maintenance ---

func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := s.svc.Reindex(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: n})
}
