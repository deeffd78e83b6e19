package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func workerID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := workerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.Lock()
	_, exists := s.workers[id]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"ok": exists})
}

func (s *Server) handleByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	device := strings.TrimSpace(r.URL.Query().Get("device"))
	if name == "" || device == "" {
		writeError(w, http.StatusBadRequest, "name and device are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, worker := range s.workers {
		if strings.EqualFold(worker.Name, name) {
			writeJSON(w, http.StatusOK, map[string]int{"id": worker.ID})
			return
		}
	}
	writeError(w, http.StatusNotFound, "worker not found")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := workerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.Lock()
	worker, exists := s.workers[id]
	checkedIn := exists && worker.CheckedIn
	s.mu.Unlock()

	if !exists {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"in_out": checkedIn})
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	}

	s.mu.Lock()
	online := make([]entry, 0, len(s.workers))
	for _, worker := range s.workers {
		if worker.Online {
			online = append(online, entry{Name: worker.Name, Lat: worker.Lat, Lon: worker.Lon})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, online)
}

func (s *Server) handleLocationSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID int     `json:"workerId"`
		Lat      float64 `json:"lat"`
		Lon      float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	if worker, exists := s.workers[req.WorkerID]; exists {
		worker.Lat = req.Lat
		worker.Lon = req.Lon
		worker.Online = true
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocationCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"allowed": s.inFence(req.Lat, req.Lon)})
}

type mutationRequest struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	WorkerID int    `json:"workerId"`
}

func (s *Server) applyMutation(w http.ResponseWriter, r *http.Request, wantType string, checkedIn bool) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" || req.Type != wantType {
		writeError(w, http.StatusBadRequest, "invalid token or type")
		return
	}

	s.mu.Lock()
	worker, exists := s.workers[req.WorkerID]
	if exists {
		worker.CheckedIn = checkedIn
	}
	s.mu.Unlock()

	if !exists {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	s.applyMutation(w, r, "entry", true)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	s.applyMutation(w, r, "exit", false)
}
