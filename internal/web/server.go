package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
	"github.com/k-negishi/team-scheduler/internal/ics"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/usecase"
	"github.com/k-negishi/team-scheduler/internal/view"
)

// Server カレンダー表示と編集セッションのHTTP API
type Server struct {
	store    usecase.ScheduleStore
	sessions *usecase.EditSessionUseCase
	clock    func() time.Time
	mux      *http.ServeMux
}

// NewServer サーバーを生成
//
// clock は「今日」の判定に使う。表示したいタイムゾーンの時刻を返すこと。
func NewServer(store usecase.ScheduleStore, sessions *usecase.EditSessionUseCase, clock func() time.Time) *Server {
	if clock == nil {
		clock = time.Now
	}
	s := &Server{
		store:    store,
		sessions: sessions,
		clock:    clock,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler ルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/schedules", s.handleDailyList)
	s.mux.HandleFunc("GET /api/schedules.ics", s.handleICS)
	s.mux.HandleFunc("GET /api/session", s.handleNewSession)
	s.mux.HandleFunc("POST /api/session/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/session/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /api/session/delete", s.handleDelete)
	s.mux.HandleFunc("POST /api/session/cancel", s.handleCancel)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	schedules, ok := s.listAll(r.Context(), w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.ToCalendarEvents(schedules))
}

func (s *Server) handleDailyList(w http.ResponseWriter, r *http.Request) {
	date := s.clock()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse(domain.DateLayout, q)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("日付の形式が不正です: %q", q))
			return
		}
		date = parsed
	}

	schedules, ok := s.listAll(r.Context(), w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.ToListEntries(schedules, date))
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	schedules, ok := s.listAll(r.Context(), w)
	if !ok {
		return
	}
	body := ics.Export(schedules, "チームスケジュール", s.clock())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedules.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleNewSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{Session: toSessionDTO(s.sessions.New())})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	session, req, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "idを指定してください")
		return
	}
	next, err := s.sessions.SelectForEditByID(r.Context(), session, req.ID)
	s.writeTransition(w, next, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, _, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	next, err := s.sessions.Submit(r.Context(), session)
	s.writeTransition(w, next, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	session, _, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	next, err := s.sessions.Delete(r.Context(), session)
	s.writeTransition(w, next, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	session, _, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	next, err := s.sessions.Cancel(session)
	s.writeTransition(w, next, err)
}

// listAll 全件取得し、失敗時はエラーレスポンスを書いて false を返す
func (s *Server) listAll(ctx context.Context, w http.ResponseWriter) ([]domain.Schedule, bool) {
	schedules, err := s.store.ListAll(ctx)
	if err != nil {
		storeErr := &domain.StoreError{Op: "list", Err: err}
		appLog.Error("スケジュールの取得に失敗しました", err)
		writeError(w, http.StatusBadGateway, storeErr.Error())
		return nil, false
	}
	return schedules, true
}

// decodeSession リクエストボディからセッションを復元する
//
// session が省略された場合は新規登録セッションとして扱う。
func (s *Server) decodeSession(w http.ResponseWriter, r *http.Request) (usecase.EditSession, sessionRequest, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return usecase.EditSession{}, req, false
	}
	if req.Session == nil {
		return s.sessions.New(), req, true
	}
	session, err := req.Session.toEditSession()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return usecase.EditSession{}, req, false
	}
	return session, req, true
}

// writeTransition 状態遷移の結果を返す（失敗時もセッションは返す）
func (s *Server) writeTransition(w http.ResponseWriter, session usecase.EditSession, err error) {
	resp := sessionResponse{Session: toSessionDTO(session)}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	status := statusFor(err)
	if status == http.StatusOK {
		resp.Warning = err.Error()
	} else {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor エラーの種類からHTTPステータスを決める
func statusFor(err error) int {
	var validationErr *domain.ValidationError
	var malformedErr *domain.MalformedTimestampError
	var storeErr *domain.StoreError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &malformedErr):
		// 編集画面には入れないが、利用者への警告で済ませる
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &storeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("JSONレスポンスの書き込みに失敗しました", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
