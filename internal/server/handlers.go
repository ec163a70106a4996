package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/storage"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Info("ask request", zap.String("question", req.Question))
	session, err := s.investigator.Investigate(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("investigation failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.storage.SaveSession(r.Context(), session); err != nil {
		// The answer is still returned; the artifact is just not replayable.
		s.logger.Warn("failed to persist session", zap.String("session", session.ID), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	summaries, err := s.storage.ListSessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []*storage.SessionSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.storage.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

type countRequest struct {
	Terms   []string `json:"terms"`
	Fuzzy   bool     `json:"fuzzy"`
	Cooccur bool     `json:"cooccur"`
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	total, err := s.corpus.Count(r.Context(), corpus.CountRequest{
		Terms: req.Terms, Fuzzy: req.Fuzzy, Cooccur: req.Cooccur,
	})
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"total": total})
}

type searchRequest struct {
	Terms        []string `json:"terms"`
	Limit        int      `json:"limit"`
	Fuzzy        bool     `json:"fuzzy"`
	Cooccur      bool     `json:"cooccur"`
	Exclude      []string `json:"exclude"`
	MinPages     int      `json:"min_pages"`
	MaxPages     int      `json:"max_pages"`
	FragmentSize int      `json:"fragment_size"`
	Fragments    int      `json:"fragments"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.Strings("terms", req.Terms), zap.Int("limit", req.Limit))
	results, err := s.corpus.Search(r.Context(), corpus.SearchRequest{
		Terms:        req.Terms,
		Limit:        req.Limit,
		Fuzzy:        req.Fuzzy,
		Cooccur:      req.Cooccur,
		Exclude:      req.Exclude,
		MinPages:     req.MinPages,
		MaxPages:     req.MaxPages,
		FragmentSize: req.FragmentSize,
		Fragments:    req.Fragments,
	})
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	fuzzy := r.URL.Query().Get("fuzzy") == "true"
	listing, err := s.corpus.List(r.Context(), query, fuzzy)
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, listing)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handleDocumentText serves the raw extracted text. Citation links point here.
func (s *Server) handleDocumentText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(doc.Content))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"config": map[string]interface{}{
			"bates_prefix":     s.cfg.Corpus.BatesPrefix,
			"bates_digits":     s.cfg.Corpus.BatesDigits,
			"model":            s.cfg.Model.Name,
			"database_path":    s.cfg.Storage.DatabasePath,
			"bleve_index_path": s.cfg.Storage.BleveIndexPath,
			"watch_dirs":       s.cfg.Watch.Directories,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(s.cfg.Storage.DatabasePath, s.cfg.Storage.BleveIndexPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
