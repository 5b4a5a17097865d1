package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/export"
	"github.com/garyjia/payment-portal/internal/form"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/resource"
	"github.com/garyjia/payment-portal/internal/storage"
)

const maxMultipartMemory = 32 << 20

type requestsContent struct {
	Rows   []resource.RequestRow
	Counts resource.Counts
	Status string
	Error  string
	// All marks the admin view of every user's requests
	All bool
}

type detailContent struct {
	Detail     resource.Detail
	Error      string
	CanDecide  bool
	CanApprove bool
	CanReject  bool
}

type createContent struct {
	Form    *form.CreateRequestForm
	Choices *entity.PaymentRequestChoices
	Modes   []string
	Types   []string
	Vat     []string
}

var paymentModes = []string{
	entity.PaymentModeWire,
	entity.PaymentModeBankTransfer,
	entity.PaymentModeCheque,
	entity.PaymentModeCash,
}

var paymentTypes = []string{
	entity.PaymentTypeVendorPayment,
	entity.PaymentTypeCreditCard,
	entity.PaymentTypeStaffReimbursement,
	entity.PaymentTypeCashAdvance,
	entity.PaymentTypeUtilities,
}

var vatStatuses = []string{entity.VatStatusVatable, entity.VatStatusNonVatable}

func requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// listRequests handles GET /requests: the requests the user created
func (s *Server) listRequests(c *gin.Context) {
	sess := currentSession(c)
	s.renderRequestList(c, sess.User.ID, false)
}

// adminRequests handles GET /admin/requests: every request the token may see
func (s *Server) adminRequests(c *gin.Context) {
	s.renderRequestList(c, 0, true)
}

func (s *Server) renderRequestList(c *gin.Context, createdBy int64, all bool) {
	res := s.deps.Loaders.RequestList(c.Request.Context(), principal(c), createdBy)
	defer res.Close()
	state := res.Load(c.Request.Context())
	if s.tokenExpired(c) {
		return
	}

	content := requestsContent{
		Status: c.Query("status"),
		Error:  state.Error,
		All:    all,
		Counts: resource.StatusCounts(state.Data),
	}
	for _, row := range resource.RequestRows(state.Data) {
		if content.Status == "" || strings.EqualFold(row.Status, content.Status) {
			content.Rows = append(content.Rows, row)
		}
	}
	s.render(c, http.StatusOK, "requests.html", "Payment requests", content)
}

// exportRequests handles GET /requests/export.xlsx
func (s *Server) exportRequests(c *gin.Context) {
	sess := currentSession(c)
	res := s.deps.Loaders.RequestList(c.Request.Context(), principal(c), sess.User.ID)
	defer res.Close()
	state := res.Load(c.Request.Context())
	if s.tokenExpired(c) {
		return
	}
	if state.Failed() {
		s.redirectWithFlash(c, "/requests", gateway.Notice{Kind: gateway.NoticeHTTP, Message: state.Error})
		return
	}

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", `attachment; filename="payment-requests.xlsx"`)
	c.Status(http.StatusOK)
	if err := s.deps.Exporter.Write(c.Writer, resource.RequestRows(state.Data)); err != nil {
		s.logger.Error("Failed to export requests", "user_id", sess.User.ID, "error", err)
	}
}

// requestDetail handles GET /requests/:id
func (s *Server) requestDetail(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		s.notFound(c)
		return
	}

	res := s.deps.Loaders.RequestDetail(c.Request.Context(), principal(c), id)
	defer res.Close()
	state := res.Load(c.Request.Context())
	if s.tokenExpired(c) {
		return
	}

	content := detailContent{Error: state.Error}
	if state.Data != nil {
		content.Detail = resource.DetailView(state.Data)
		user := currentSession(c).User
		if user.HasRole(entity.RoleApprover) || user.HasRole(entity.RoleAdmin) {
			for _, action := range content.Detail.Actions {
				switch action {
				case "APPROVE":
					content.CanApprove = true
				case "REJECT":
					content.CanReject = true
				}
			}
			content.CanDecide = content.CanApprove || content.CanReject
		}
	} else {
		content.Detail.RequestNo = resource.RequestNo(id)
	}
	s.render(c, http.StatusOK, "request_detail.html", resource.RequestNo(id), content)
}

// approveRequest handles POST /requests/:id/approve
func (s *Server) approveRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		s.notFound(c)
		return
	}
	decision := entity.ApprovalDecision{Remarks: strings.TrimSpace(c.PostForm("remarks"))}
	s.decide(c, id, "approved", func() bool {
		return s.deps.API.ApprovePaymentRequest(c.Request.Context(), scope(c), id, decision)
	})
}

// rejectRequest handles POST /requests/:id/reject. A reason is required.
func (s *Server) rejectRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		s.notFound(c)
		return
	}
	decision := entity.ApprovalDecision{
		Remarks:         strings.TrimSpace(c.PostForm("remarks")),
		RejectionReason: strings.TrimSpace(c.PostForm("rejection_reason")),
	}
	if decision.RejectionReason == "" {
		s.redirectWithFlash(c, detailPath(id), gateway.Notice{Kind: gateway.NoticeValidation, Message: "Rejection reason is required"})
		return
	}
	s.decide(c, id, "rejected", func() bool {
		return s.deps.API.RejectPaymentRequest(c.Request.Context(), scope(c), id, decision)
	})
}

func (s *Server) decide(c *gin.Context, id int64, verb string, call func() bool) {
	if !call() {
		if s.tokenExpired(c) {
			return
		}
		s.redirectWithFlash(c, detailPath(id), gateway.Notice{
			Kind:    gateway.NoticeHTTP,
			Message: lastError(c, fmt.Sprintf("Request %s could not be %s", resource.RequestNo(id), verb)),
		})
		return
	}

	user := currentSession(c).User
	s.deps.Loaders.Invalidate(user.ID)
	s.logger.Info("Payment request decided", "request_id", id, "decision", verb, "user_id", user.ID)
	s.redirectWithFlash(c, detailPath(id), gateway.Notice{
		Kind:    gateway.NoticeSuccess,
		Message: fmt.Sprintf("Request %s %s.", resource.RequestNo(id), verb),
	})
}

func detailPath(id int64) string {
	return "/requests/" + strconv.FormatInt(id, 10)
}

// createRequestPage handles GET /create-request
func (s *Server) createRequestPage(c *gin.Context) {
	f := form.NewCreateRequestForm()
	f.Vendors[0].Currency = s.deps.Defaults.Currency
	s.renderCreate(c, http.StatusOK, f, nil)
}

// createRequest handles POST /create-request. The "action" field selects a
// form update (add_vendor, refresh) instead of a submission.
func (s *Server) createRequest(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			s.logger.Error("Failed to parse multipart form", "error", err)
			pageNotices(c).Notify(gateway.Notice{Kind: gateway.NoticeValidation, Message: "The upload could not be read"})
			s.renderCreate(c, http.StatusBadRequest, form.NewCreateRequestForm(), nil)
			return
		}
		defer c.Request.MultipartForm.RemoveAll()
	} else if err := c.Request.ParseForm(); err != nil {
		s.renderCreate(c, http.StatusBadRequest, form.NewCreateRequestForm(), nil)
		return
	}

	f := form.ParseCreateRequest(c.Request.PostForm)

	switch c.PostForm("action") {
	case "add_vendor":
		if !f.AddVendor() {
			pageNotices(c).Notify(gateway.Notice{
				Kind:    gateway.NoticeValidation,
				Message: fmt.Sprintf("%s requests allow only one vendor", entity.PaymentTypeLabel(f.PaymentType)),
			})
		}
		s.renderCreate(c, http.StatusOK, f, nil)
		return
	case "refresh":
		s.renderCreate(c, http.StatusOK, f, nil)
		return
	}

	batch, err := s.deps.Stager.NewBatch()
	if err != nil {
		s.logger.Error("Failed to create upload batch", "error", err)
		pageNotices(c).Notify(gateway.Notice{Kind: gateway.NoticeHTTP, Message: "Attachments could not be stored"})
		s.renderCreate(c, http.StatusInternalServerError, f, nil)
		return
	}
	defer batch.Cleanup()

	if c.Request.MultipartForm != nil {
		if err := stageAttachments(batch, f, c.Request.MultipartForm.File); err != nil {
			pageNotices(c).Notify(gateway.Notice{Kind: gateway.NoticeValidation, Message: err.Error()})
			s.renderCreate(c, http.StatusUnprocessableEntity, f, nil)
			return
		}
		if staged := batch.Files(); len(staged) > 0 {
			s.logger.Info("Attachments staged", "batch_id", batch.ID(), "files", len(staged))
		}
	}

	user := currentSession(c).User
	flow := form.NewFlow(f)
	created, err := flow.Submit(c.Request.Context(), s.deps.API, scope(c), user, s.deps.Defaults)
	if err != nil {
		if s.tokenExpired(c) {
			return
		}
		if _, ok := form.AsValidationErrors(err); ok {
			s.renderCreate(c, http.StatusUnprocessableEntity, f, err)
			return
		}
		if !errors.Is(err, form.ErrSubmitFailed) {
			s.logger.Error("Create request flow failed", "user_id", user.ID, "state", flow.State().String(), "error", err)
		}
		s.renderCreate(c, http.StatusOK, f, nil)
		return
	}

	s.deps.Loaders.Invalidate(user.ID)
	s.logger.Info("Payment request created", "request_id", created.RequestID, "user_id", user.ID)

	target := "/requests"
	msg := "Payment request submitted."
	if created.RequestID > 0 {
		target = detailPath(created.RequestID)
		msg = fmt.Sprintf("Request %s submitted.", resource.RequestNo(created.RequestID))
	}
	s.redirectWithFlash(c, target, gateway.Notice{Kind: gateway.NoticeSuccess, Message: msg})
}

// stageAttachments writes every "vendors[i][gl_entries][j][attachments]"
// upload into batch and attaches it to its GL entry. Uploads for entries the
// form does not have are ignored.
func stageAttachments(batch *storage.Batch, f *form.CreateRequestForm, files map[string][]*multipart.FileHeader) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		vendor, entry, ok := form.GLEntryIndex(name)
		if !ok {
			continue
		}
		for _, fh := range files[name] {
			if fh.Filename == "" {
				continue
			}
			staged, err := stageOne(batch, fh)
			if err != nil {
				return err
			}
			f.Attach(vendor, entry, form.Attachment{FileName: staged.FileName, Path: staged.Path})
		}
	}
	return nil
}

func stageOne(batch *storage.Batch, fh *multipart.FileHeader) (storage.StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return storage.StagedFile{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	defer src.Close()

	staged, err := batch.Stage(fh.Filename, src)
	if errors.Is(err, storage.ErrFileTooLarge) {
		return storage.StagedFile{}, fmt.Errorf("%s is larger than the upload limit of %s", fh.Filename, formatBytes(batch.MaxFileSize()))
	}
	return staged, err
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (s *Server) renderCreate(c *gin.Context, status int, f *form.CreateRequestForm, err error) {
	choices := s.deps.Loaders.Choices(c.Request.Context(), principal(c))
	defer choices.Close()
	// Choices are optional; the form falls back to the built-in lists.
	state := choices.Load(c.Request.Context())
	if s.tokenExpired(c) {
		return
	}

	s.renderForm(c, status, "create_request.html", "New payment request", createContent{
		Form:    f,
		Choices: state.Data,
		Modes:   paymentModes,
		Types:   paymentTypes,
		Vat:     vatStatuses,
	}, err)
}
