package api

import (
	"net/http"

	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students filtered by school_id, grade_level, name
// and is_active.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	filter, err := studentFilter(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	students, total, err := h.Repo.ListStudents(r.Context(), filter, page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentList(students, total, page))
}

func studentFilter(r *http.Request) (ledger.StudentFilter, error) {
	var f ledger.StudentFilter
	schoolID, err := queryInt(r, "school_id")
	if err != nil {
		return f, err
	}
	if schoolID != nil {
		id := ledger.SchoolID(*schoolID)
		f.SchoolID = &id
	}
	if f.GradeLevel, err = queryInt(r, "grade_level"); err != nil {
		return f, err
	}
	if f.IsActive, err = queryBool(r, "is_active"); err != nil {
		return f, err
	}
	f.Name = queryString(r, "name")
	return f, nil
}

func studentList(students []ledger.Student, total int, page ledger.Page) ListResponse[StudentDTO] {
	resp := ListResponse[StudentDTO]{Items: make([]StudentDTO, 0, len(students)), Total: total, Offset: page.Offset, Limit: page.Limit}
	for _, s := range students {
		resp.Items = append(resp.Items, toStudentDTO(s))
	}
	return resp
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	var cached StudentDTO
	if h.Cache.GetJSON(ctx, cache.TierStatic, studentDetailKey(id), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	student, err := h.Repo.FetchStudent(ctx, ledger.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if student == nil {
		notFound(w, "Student")
		return
	}

	dto := toStudentDTO(*student)
	h.Cache.SetJSON(ctx, cache.TierStatic, studentDetailKey(id), dto)
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	student := req.toStudent(h.today())
	if err := student.Validate(h.today()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	created, err := h.Repo.CreateStudent(r.Context(), student)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(r, schoolPrefix(int64(created.SchoolID)), keySchoolList)

	h.Logger.Info("student created",
		zap.Int64("student_id", int64(created.ID)),
		zap.Int64("school_id", int64(created.SchoolID)))
	writeJSON(w, http.StatusCreated, toStudentDTO(created))
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req UpdateStudentRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	existing, err := h.Repo.FetchStudent(ctx, ledger.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if existing == nil {
		notFound(w, "Student")
		return
	}
	student := req.apply(*existing)
	if err := student.Validate(h.today()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	updated, err := h.Repo.UpdateStudent(ctx, student)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(r,
		studentPrefix(id),
		schoolPrefix(int64(existing.SchoolID)),
		schoolPrefix(int64(updated.SchoolID)),
		keySchoolList)

	writeJSON(w, http.StatusOK, toStudentDTO(updated))
}

// DeleteStudent removes the student and their invoices.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	existing, err := h.Repo.FetchStudent(ctx, ledger.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if existing == nil {
		notFound(w, "Student")
		return
	}
	deleted, err := h.Repo.DeleteStudent(ctx, ledger.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !deleted {
		notFound(w, "Student")
		return
	}
	h.invalidate(r, studentPrefix(id), schoolPrefix(int64(existing.SchoolID)), keySchoolList)

	h.Logger.Info("student deleted", zap.Int64("student_id", id))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Student deleted successfully"})
}

// ListStudentInvoices lists one student's invoices by invoice date.
func (h *Handler) ListStudentInvoices(w http.ResponseWriter, r *http.Request) {
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

	student, err := h.Repo.FetchStudent(ctx, ledger.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if student == nil {
		notFound(w, "Student")
		return
	}

	studentID := student.ID
	invoices, total, err := h.Repo.FetchInvoices(ctx, ledger.InvoiceFilter{StudentID: &studentID}, page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.invoiceList(invoices, total, page))
}
