package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	service "github.com/okian/beatpage/internal/app"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
)

const (
	maxUploadMemory = 32 << 20
	maxWait         = 10 * time.Second
)

// ProfileHandler serves the profile page and its user actions.
type ProfileHandler struct {
	deps Dependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type paymentRequest struct {
	Amount     float64 `json:"amount"`
	CardNumber string  `json:"cardNumber"`
}

type tracksResponse struct {
	Tracks []model.Track `json:"tracks"`
}

type uploadFailure struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Tracks  []model.Track `json:"tracks"`
}

// HandleGet handles GET /profiles/{userID}. With ?wait=1 the response
// holds until the first load settles.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Mount(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	h.respondView(w, r, page)
}

// HandleReload handles POST /profiles/{userID}/reload.
func (h *ProfileHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Remount(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	h.respondView(w, r, page)
}

func (h *ProfileHandler) respondView(w http.ResponseWriter, r *http.Request, page *service.Page) {
	if r.URL.Query().Get("wait") != "" {
		select {
		case <-page.Ready():
		case <-r.Context().Done():
		case <-time.After(maxWait):
		}
	}
	writeJSON(w, http.StatusOK, page.Render())
}

// HandlePatch handles PATCH /profiles/{userID}. Unknown fields are
// rejected so only real profile fields reach the store.
func (h *ProfileHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}

	var patch model.ProfilePatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "empty_patch", ErrEmptyPatch)
		return
	}

	if !page.EditProfile(r.Context(), patch) {
		writeStoreFailure(w, page)
		return
	}
	writeJSON(w, http.StatusOK, page.Render())
}

// HandleToggleEditing handles POST /profiles/{userID}/editing.
func (h *ProfileHandler) HandleToggleEditing(w http.ResponseWriter, r *http.Request) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}
	page.ToggleEditing()
	writeJSON(w, http.StatusOK, page.Render())
}

// HandleSetPayment handles PUT /profiles/{userID}/payment: it opens the
// panel and fills the form.
func (h *ProfileHandler) HandleSetPayment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	page.OpenPayment()
	page.SetPayment(req.Amount, req.CardNumber)
	writeJSON(w, http.StatusOK, page.Render())
}

// HandleClosePayment handles DELETE /profiles/{userID}/payment.
func (h *ProfileHandler) HandleClosePayment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}
	page.ClosePayment()
	writeJSON(w, http.StatusOK, page.Render())
}

// HandleSubmitPayment handles POST /profiles/{userID}/payment/submit.
func (h *ProfileHandler) HandleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}
	if !page.SubmitPayment(r.Context()) {
		writeStoreFailure(w, page)
		return
	}
	writeJSON(w, http.StatusOK, page.Render())
}

// HandleUpload handles POST /profiles/{userID}/tracks.
func (h *ProfileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	h.handleFiles(w, r, types.SourceUpload)
}

// HandleDrop handles POST /profiles/{userID}/tracks/drop.
func (h *ProfileHandler) HandleDrop(w http.ResponseWriter, r *http.Request) {
	h.handleFiles(w, r, types.SourceDrop)
}

func (h *ProfileHandler) handleFiles(w http.ResponseWriter, r *http.Request, source types.TrackSource) {
	page, ok := h.contentPage(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no_files", ErrNoFiles)
		return
	}

	files, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_file", err)
		return
	}

	var added []model.Track
	if source == types.SourceDrop {
		added = page.DropFiles(r.Context(), files)
	} else {
		added = page.UploadFiles(r.Context(), files)
	}
	if len(added) < len(files) {
		// Tracks that were written stay in the store; report them.
		writeJSON(w, http.StatusBadGateway, uploadFailure{
			Code:    "store_failed",
			Message: failureMessage(page),
			Tracks:  added,
		})
		return
	}
	writeJSON(w, http.StatusCreated, tracksResponse{Tracks: added})
}

func openUploads(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("%w: open %s: %w", ErrBadRequest, fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, service.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// contentPage resolves the mounted page and refuses actions unless it is
// showing a profile.
func (h *ProfileHandler) contentPage(w http.ResponseWriter, r *http.Request) (*service.Page, bool) {
	page, err := h.deps.Mount(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return nil, false
	}

	view := page.Render()
	switch view.State {
	case types.ViewLoading:
		writeMessage(w, http.StatusConflict, "loading", "profile is still loading")
		return nil, false
	case types.ViewError:
		writeMessage(w, http.StatusNotFound, "profile_unavailable", view.Message)
		return nil, false
	}
	return page, true
}

// writeStoreFailure reports the hook's latest error for a failed action.
func writeStoreFailure(w http.ResponseWriter, page *service.Page) {
	writeMessage(w, http.StatusBadGateway, "store_failed", failureMessage(page))
}

func failureMessage(page *service.Page) string {
	if msg := strings.TrimSpace(page.Hook().State().Error); msg != "" {
		return msg
	}
	return http.StatusText(http.StatusBadGateway)
}
