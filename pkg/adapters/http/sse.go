package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/go-chi/chi/v5"
)

func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	return flusher, true
}

// subscribeGlobal streams graph reload notices.
func (s *Server) subscribeGlobal(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, globalTopic, nil)
}

// subscribeSession streams StateDiff messages for one session.
// ?watch=variables,history,status keeps only diffs touching those fields.
func (s *Server) subscribeSession(w http.ResponseWriter, r *http.Request) {
	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				watch = append(watch, f)
			}
		}
	}
	s.stream(w, r, chi.URLParam(r, "id"), watch)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string, watch []string) {
	ch, cancel := s.streams.Subscribe(topic)
	defer cancel()

	flusher, ok := startSSE(w)
	if !ok {
		return
	}
	s.logger.Debug("SSE client connected", "topic", topic)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "topic", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !diffMatches(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func diffMatches(msg string, watch []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch field {
		case "variables":
			if len(diff.Variables) > 0 {
				return true
			}
		case "history":
			if diff.HistoryParams != nil {
				return true
			}
		case "status":
			if diff.Status != nil || diff.Reason != nil {
				return true
			}
		case "node":
			if diff.CurrentNodeID != nil {
				return true
			}
		}
	}
	return false
}
