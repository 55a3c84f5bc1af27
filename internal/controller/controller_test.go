package controller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-docqa-be/internal/constant"
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder remembers which service method a request reached.
type recorder struct {
	called string
	err    error
}

func (r *recorder) hit(name string) error {
	r.called = name
	return r.err
}

type fakeDocuments struct{ recorder }

func (f *fakeDocuments) Upload(ctx context.Context, userId uuid.UUID, filename string, size int64, src io.Reader) (*dto.UploadDocumentResponse, error) {
	return &dto.UploadDocumentResponse{}, f.hit("Upload")
}

func (f *fakeDocuments) List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	return &dto.ListDocumentsResponse{}, f.hit("List")
}

func (f *fakeDocuments) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	return &dto.ShowDocumentResponse{}, f.hit("Show")
}

func (f *fakeDocuments) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	return f.hit("Delete")
}

func (f *fakeDocuments) Reprocess(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	return &dto.DocumentResponse{}, f.hit("Reprocess")
}

func (f *fakeDocuments) Cancel(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	return &dto.DocumentResponse{}, f.hit("Cancel")
}

type fakeChat struct{ recorder }

func (f *fakeChat) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error) {
	return &dto.ChatSessionResponse{Title: req.Title}, f.hit("CreateSession")
}

func (f *fakeChat) ListSessions(ctx context.Context, userId uuid.UUID) (*dto.ListChatSessionsResponse, error) {
	return &dto.ListChatSessionsResponse{}, f.hit("ListSessions")
}

func (f *fakeChat) ShowSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	return &dto.ChatSessionResponse{}, f.hit("ShowSession")
}

func (f *fakeChat) Ask(ctx context.Context, userId uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error) {
	return &dto.AskResponse{}, f.hit("Ask")
}

func (f *fakeChat) History(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	return &dto.ChatHistoryResponse{}, f.hit("History")
}

func (f *fakeChat) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	return f.hit("DeleteSession")
}

func newTestApp(register func(r fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	register(app.Group("/api"))
	return app
}

func asUser(ctx *fiber.Ctx) error {
	ctx.Locals("user_id", uuid.NewString())
	return ctx.Next()
}

type routeCase struct {
	method string
	path   string
	body   string
	want   string
	status int
}

func runRoutes(t *testing.T, app *fiber.App, rec *recorder, tests []routeCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec.called = ""
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.want, rec.called)
		})
	}
}

func TestDocumentController_Routes(t *testing.T) {
	svc := &fakeDocuments{}
	app := newTestApp(NewDocumentController(svc, asUser).RegisterRoutes)
	id := uuid.NewString()

	runRoutes(t, app, &svc.recorder, []routeCase{
		{http.MethodGet, "/api/document/v1", "", "List", http.StatusOK},
		{http.MethodGet, "/api/document/v1/" + id, "", "Show", http.StatusOK},
		{http.MethodDelete, "/api/document/v1/" + id, "", "Delete", http.StatusOK},
		{http.MethodPost, "/api/document/v1/" + id + "/reprocess", "", "Reprocess", http.StatusAccepted},
		{http.MethodPost, "/api/document/v1/" + id + "/cancel", "", "Cancel", http.StatusOK},
		{http.MethodGet, "/api/document/v1/not-a-uuid", "", "", http.StatusBadRequest},
	})
}

func TestChatController_Routes(t *testing.T) {
	svc := &fakeChat{}
	app := newTestApp(NewChatController(svc, asUser).RegisterRoutes)
	id := uuid.NewString()

	runRoutes(t, app, &svc.recorder, []routeCase{
		{http.MethodPost, "/api/chat/v1/sessions", `{"title":"Q3"}`, "CreateSession", http.StatusCreated},
		{http.MethodPost, "/api/chat/v1/sessions", `{"title":""}`, "", http.StatusBadRequest},
		{http.MethodGet, "/api/chat/v1/sessions", "", "ListSessions", http.StatusOK},
		{http.MethodGet, "/api/chat/v1/sessions/" + id, "", "ShowSession", http.StatusOK},
		{http.MethodGet, "/api/chat/v1/sessions/" + id + "/messages", "", "History", http.StatusOK},
		{http.MethodDelete, "/api/chat/v1/sessions/" + id, "", "DeleteSession", http.StatusOK},
		{http.MethodPost, "/api/chat/v1/ask", `{"question":"How did revenue change?"}`, "Ask", http.StatusOK},
	})
}

func TestChatController_MissingSession(t *testing.T) {
	svc := &fakeChat{recorder: recorder{err: constant.ErrChatSessionNotFound}}
	app := newTestApp(NewChatController(svc, asUser).RegisterRoutes)

	runRoutes(t, app, &svc.recorder, []routeCase{
		{http.MethodGet, "/api/chat/v1/sessions/" + uuid.NewString(), "", "ShowSession", http.StatusNotFound},
	})
}
