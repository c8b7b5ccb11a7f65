package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/metrics"
	"github.com/lazypower/echocloset/internal/store"
)

// hoardView is a hoard with its computed cooldown deadline.
type hoardView struct {
	Entry    store.Entry `json:"entry"`
	Deadline time.Time   `json:"deadline"`
}

func viewHoard(e store.Entry) hoardView {
	return hoardView{Entry: e, Deadline: e.Deadline()}
}

func (s *Server) handleCreateEcho(w http.ResponseWriter, r *http.Request) {
	var req echoRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "echo", "text required")
		return
	}

	entry, err := s.eng.CreateEcho(r.Context(), req.Text)
	if errors.Is(err, engine.ErrInvalidInput) {
		badRequest(w, "echo", "text required")
		return
	}
	if err != nil {
		fail(w, "echo", err)
		return
	}

	ok(w, "echo", http.StatusCreated, map[string]any{
		"entry":   entry,
		"message": "……收下了。",
	})
}

func (s *Server) handleCreateHoard(w http.ResponseWriter, r *http.Request) {
	var req hoardRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "hoard", "description and owner_id required, cooldown_days must be 0 or more")
		return
	}

	entry, err := s.eng.CreateHoard(r.Context(), req.Description, req.CooldownDays, req.OwnerID)
	if errors.Is(err, engine.ErrInvalidInput) {
		badRequest(w, "hoard", "description and owner_id required, cooldown_days must be 0 or more")
		return
	}
	if err != nil {
		fail(w, "hoard", err)
		return
	}

	ok(w, "hoard", http.StatusCreated, map[string]any{
		"hoard":   viewHoard(entry),
		"message": fmt.Sprintf("……收下了。%d天後再看看你還想不想買。", entry.CooldownDays),
	})
}

func (s *Server) handleListHoards(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner_id")
	if owner == "" {
		badRequest(w, "hoards", "owner_id required")
		return
	}

	hoards := s.eng.ListHoards(owner)
	views := make([]hoardView, 0, len(hoards))
	for _, h := range hoards {
		views = append(views, viewHoard(h))
	}
	ok(w, "hoards", http.StatusOK, map[string]any{"hoards": views})
}

func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	// count <= 0 means the default and days <= 0 means no window, as in
	// ListRecent; only values that are not integers are rejected.
	count, err := intParam(r, "count", engine.DefaultRecentCount)
	if err != nil {
		badRequest(w, "recent", "count must be an integer")
		return
	}
	days, err := intParam(r, "days", 0)
	if err != nil {
		badRequest(w, "recent", "days must be an integer")
		return
	}

	ok(w, "recent", http.StatusOK, map[string]any{"entries": s.eng.ListRecent(count, days)})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.eng.Entry(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "entry")
		return
	}
	if err != nil {
		fail(w, "entry", err)
		return
	}
	if entry.Kind == store.KindHoard {
		ok(w, "entry", http.StatusOK, map[string]any{"entry": entry, "deadline": entry.Deadline()})
		return
	}
	ok(w, "entry", http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 30)
	if err != nil || days < 1 {
		badRequest(w, "analyze", "days must be a positive integer")
		return
	}
	ok(w, "analyze", http.StatusOK, s.eng.Analyze(days))
}

func (s *Server) handleWipeRequest(w http.ResponseWriter, r *http.Request) {
	token, expires := s.confirm.issue()
	ok(w, "wipe", http.StatusAccepted, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
		"entries":    s.eng.Store.Len(),
		"message":    "這會把所有紀錄永久刪除，沒有備份。要確認請在期限內送出 token。",
	})
}

func (s *Server) handleWipeConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "wipe_confirm", "token required")
		return
	}
	if !s.confirm.redeem(req.Token) {
		metrics.Requests.WithLabelValues("wipe_confirm", "rejected").Inc()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "confirmation expired or unknown"})
		return
	}

	n, err := s.eng.Wipe(r.Context())
	if err != nil {
		fail(w, "wipe_confirm", err)
		return
	}
	ok(w, "wipe_confirm", http.StatusOK, map[string]any{
		"wiped":   n,
		"message": fmt.Sprintf("…燒掉了。%d 條殘響，全部化為灰。", n),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.eng.ScanOnce(r.Context())
	if err != nil {
		fail(w, "scan", err)
		return
	}
	ok(w, "scan", http.StatusOK, res)
}

func (s *Server) handleToggleGhost(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		fail(w, "ghost", errors.New("no gate configured"))
		return
	}
	on := s.gate.Toggle()
	slog.Info("ghost mode toggled", "enabled", on)

	status := "停用"
	if on {
		status = "啟用"
	}
	ok(w, "ghost", http.StatusOK, map[string]any{
		"ghost":   on,
		"window":  s.gate.Window(),
		"message": fmt.Sprintf("鬼魂模式已%s。", status),
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
