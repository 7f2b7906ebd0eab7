package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/server/services"
)

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "users", list)
}

func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, envelope{"user": user})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), current.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, envelope{"user": user})
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var upd services.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.UpdateMe(r.Context(), current.ID, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, envelope{"user": user})
}

func (h *Handler) UpdateMyPhoto(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !isMultipart(r) {
		h.writeError(w, r, common.NewError(common.ErrorValidation, "No file provided"))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeUploads, err := openUploads(r, "photo")
	defer closeUploads()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(uploads) == 0 {
		h.writeError(w, r, common.NewError(common.ErrorValidation, "No file provided"))
		return
	}

	user, err := h.users.UpdatePhoto(r.Context(), current, uploads[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"status":  "success",
		"message": "Your photo was updated successfully",
		"data":    envelope{"user": user},
	})
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteMe(r.Context(), current); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
