package api

import (
	"context"
	"net/http"

	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCHOOL HANDLERS
// =============================================================================

// ListSchools returns schools filtered by name, city, state and is_active.
func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := listKey(keySchoolList, r.URL.Query())
	var cached ListResponse[SchoolDTO]
	if h.Cache.GetJSON(ctx, cache.TierStatic, key, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	active, err := queryBool(r, "is_active")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	filter := ledger.SchoolFilter{
		Name:     queryString(r, "name"),
		City:     queryString(r, "city"),
		State:    queryString(r, "state"),
		IsActive: active,
	}

	schools, total, err := h.Repo.ListSchools(ctx, filter, page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := ListResponse[SchoolDTO]{Items: make([]SchoolDTO, 0, len(schools)), Total: total, Offset: page.Offset, Limit: page.Limit}
	for _, s := range schools {
		dto, err := h.schoolWithCount(ctx, s)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		resp.Items = append(resp.Items, dto)
	}

	h.Cache.SetJSON(ctx, cache.TierStatic, key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// GetSchool returns one school with its student count.
func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	var cached SchoolDTO
	if h.Cache.GetJSON(ctx, cache.TierStatic, schoolDetailKey(id), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	school, err := h.Repo.FetchSchool(ctx, ledger.SchoolID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if school == nil {
		notFound(w, "School")
		return
	}
	dto, err := h.schoolWithCount(ctx, *school)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Cache.SetJSON(ctx, cache.TierStatic, schoolDetailKey(id), dto)
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	school := req.toSchool()
	if err := school.Validate(); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	created, err := h.Repo.CreateSchool(r.Context(), school)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(r, keySchoolList)

	h.Logger.Info("school created", zap.Int64("school_id", int64(created.ID)))
	dto := toSchoolDTO(created)
	zero := 0
	dto.StudentCount = &zero
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req UpdateSchoolRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	existing, err := h.Repo.FetchSchool(ctx, ledger.SchoolID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if existing == nil {
		notFound(w, "School")
		return
	}
	school := req.apply(*existing)
	if err := school.Validate(); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	updated, err := h.Repo.UpdateSchool(ctx, school)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(r, keySchoolList, schoolPrefix(id))
	// Student statements carry the school header; they are keyed by student.
	if updated.Name != existing.Name || updated.FullAddress() != existing.FullAddress() {
		if err := h.Cache.Clear(ctx, cache.TierAPI); err != nil {
			h.Logger.Warn("clearing statements after school rename failed", zap.Int64("school_id", id), zap.Error(err))
		}
	}

	dto, err := h.schoolWithCount(ctx, updated)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteSchool removes the school with its students and invoices.
func (h *Handler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	deleted, err := h.Repo.DeleteSchool(r.Context(), ledger.SchoolID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !deleted {
		notFound(w, "School")
		return
	}

	// The cascade reaches students whose ids we no longer know.
	if err := h.Cache.Clear(r.Context(), ""); err != nil {
		h.Logger.Warn("cache clear after school delete failed", zap.Error(err))
	}

	h.Logger.Info("school deleted", zap.Int64("school_id", id))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "School deleted successfully"})
}

// ListSchoolStudents lists the students of one school.
func (h *Handler) ListSchoolStudents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	school, err := h.Repo.FetchSchool(ctx, ledger.SchoolID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if school == nil {
		notFound(w, "School")
		return
	}

	schoolID := school.ID
	students, total, err := h.Repo.ListStudents(ctx, ledger.StudentFilter{SchoolID: &schoolID}, page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentList(students, total, page))
}

func (h *Handler) schoolWithCount(ctx context.Context, s ledger.School) (SchoolDTO, error) {
	n, err := h.Repo.CountStudents(ctx, s.ID)
	if err != nil {
		return SchoolDTO{}, err
	}
	dto := toSchoolDTO(s)
	dto.StudentCount = &n
	return dto, nil
}
