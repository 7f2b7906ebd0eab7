package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/services"
)

type postRequest struct {
	Content  string  `json:"content"`
	Location string  `json:"location"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func (h *Handler) LatestPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.Latest(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "posts", list)
}

func (h *Handler) AllPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.All(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "posts", list)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, envelope{"categories": h.posts.Categories()})
}

func (h *Handler) PostsByCategory(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.ByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "posts", list)
}

func (h *Handler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.Search(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "posts", list)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, envelope{"post": post})
}

// readPostForm reads a post from a multipart form, with its images, or from
// a JSON body without images.
func readPostForm(w http.ResponseWriter, r *http.Request) (services.PostInput, []media.Upload, func(), error) {
	noop := func() {}

	if !isMultipart(r) {
		var req postRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return services.PostInput{}, nil, noop, err
		}
		return services.PostInput(req), nil, noop, nil
	}

	if err := parseMultipart(w, r); err != nil {
		return services.PostInput{}, nil, noop, err
	}

	in := services.PostInput{
		Content:  r.FormValue("content"),
		Location: r.FormValue("location"),
		Category: r.FormValue("category"),
	}
	if p := strings.TrimSpace(r.FormValue("price")); p != "" {
		price, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return services.PostInput{}, nil, noop, common.NewError(common.ErrorValidation, "Price must be a number")
		}
		in.Price = price
	}

	uploads, closeUploads, err := openUploads(r, "images")
	if err != nil {
		return services.PostInput{}, nil, closeUploads, err
	}
	return in, uploads, closeUploads, nil
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	in, uploads, closeUploads, err := readPostForm(w, r)
	defer closeUploads()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	post, err := h.posts.Create(r.Context(), current.ID, in, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, envelope{"post": post})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var upd models.PostUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), current.ID, chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, envelope{"post": post})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.posts.Delete(r.Context(), current.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
