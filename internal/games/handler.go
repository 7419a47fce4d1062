package games

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/memorymate/backend/internal/intake"
	"github.com/memorymate/backend/internal/models"
	"github.com/memorymate/backend/internal/play"
	"github.com/memorymate/backend/internal/store"
	"go.uber.org/zap"
)

// maxCreateBody bounds JSON bodies, which carry data URL images.
const maxCreateBody = 64 << 20

type Handler struct {
	service       *Service
	maxImageBytes int
	logger        *zap.Logger
}

func NewHandler(service *Service, maxImageBytes int, logger *zap.Logger) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = intake.DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, maxImageBytes: maxImageBytes, logger: logger}
}

// RegisterRoutes registers game library and play endpoints on the given subrouter.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/games", h.ListGames).Methods("GET")
	r.HandleFunc("/games", h.CreateGame).Methods("POST")
	r.HandleFunc("/games/{id}", h.GetGame).Methods("GET")
	r.HandleFunc("/games/{id}", h.UpdateGame).Methods("PATCH")
	r.HandleFunc("/games/{id}", h.DeleteGame).Methods("DELETE")
	r.HandleFunc("/games/{id}/results", h.GetResults).Methods("GET")
	r.HandleFunc("/games/{id}/sessions", h.StartSession).Methods("POST")

	r.HandleFunc("/images", h.UploadImages).Methods("POST")

	r.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.EndSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/answers", h.SubmitAnswer).Methods("POST")
	r.HandleFunc("/sessions/{id}/restart", h.RestartSession).Methods("POST")
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.CreateGame(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateGame", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context())
	if err != nil {
		h.writeError(w, "ListGames", err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "GetGame", err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	game, err := h.service.UpdateGame(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, "UpdateGame", err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGame(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, "DeleteGame", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.GetResults(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "GetResults", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// UploadImages accepts multipart "images" files and returns data URL handles.
// An optional "held" field counts images the client already holds.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.service.limits.MaxImages)*int64(h.maxImageBytes) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid multipart upload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	files := make([]intake.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read " + fh.Filename})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, int64(h.maxImageBytes)+1))
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read " + fh.Filename})
			return
		}
		files = append(files, intake.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data})
	}

	held, _ := strconv.Atoi(r.FormValue("held"))
	handles, err := h.service.EncodeImages(files, held)
	if err != nil {
		h.writeError(w, "UploadImages", err)
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResponse{Images: handles})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.StartSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "StartSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.QuestionIndex == nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_index is required"})
		return
	}
	if req.AnswerIndex == nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer_index is required"})
		return
	}

	sess, err := h.service.SubmitAnswer(r.Context(), mux.Vars(r)["id"], *req.QuestionIndex, *req.AnswerIndex)
	if err != nil {
		h.writeError(w, "SubmitAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) RestartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.RestartSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "RestartSession", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndSession(mux.Vars(r)["id"]); err != nil {
		h.writeError(w, "EndSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var inputErr *InputError
	var fileErr *intake.FileError
	var opErr *store.OperationError

	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: inputErr.Message})
	case errors.Is(err, intake.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: err.Error()})
	case errors.As(err, &fileErr), errors.Is(err, intake.ErrNoImages), errors.Is(err, intake.ErrTooManyImages):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrGameNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Game not found"})
	case errors.Is(err, play.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
	case errors.Is(err, play.ErrInvalidAnswer):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer_index must be between 0 and 3"})
	case errors.Is(err, play.ErrNoQuestions):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "Game has no questions"})
	case errors.Is(err, play.ErrStaleAnswer):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "That question is no longer current"})
	case errors.Is(err, play.ErrSessionCompleted), errors.Is(err, play.ErrNotInProgress):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.As(err, &opErr):
		h.logger.Error("store operation failed", zap.String("handler", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Could not save your changes. Please try again."})
	default:
		h.logger.Error("request failed", zap.String("handler", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
