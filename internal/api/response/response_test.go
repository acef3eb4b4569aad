package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
)

func setupTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

type articleStub struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestSuccess_WrapsData(t *testing.T) {
	c, rec := setupTestContext()

	err := Success(c, articleStub{ID: 1, Title: "Hello"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":1,"title":"Hello"}}`, rec.Body.String())
}

func TestSuccessWithMessage_KeepsNilDataOut(t *testing.T) {
	c, rec := setupTestContext()

	err := SuccessWithMessage(c, nil, "no processed articles this week")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"no processed articles this week"}`, rec.Body.String())
}

func TestCreated_Returns201(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, Created(c, articleStub{ID: 2}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAccepted_CarriesMessage(t *testing.T) {
	c, rec := setupTestContext()

	err := Accepted(c, articleStub{ID: 3}, "article queued for extraction")

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "article queued for extraction", resp.Message)
}

func TestNoContent_Returns204(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, NoContent(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPaginated_EmptyPageKeepsDataArray(t *testing.T) {
	c, rec := setupTestContext()

	err := Paginated(c, []articleStub{}, 0, 20, 40)

	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0,"limit":20,"offset":40}}`, rec.Body.String())
}

func TestError_MapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing article", apperrors.ErrArticleNotFound, http.StatusNotFound, apperrors.CodeNotFound},
		{"duplicate url", apperrors.ErrDuplicateEntry, http.StatusConflict, apperrors.CodeDuplicateEntry},
		{"bad url", fmt.Errorf("%w: unsupported scheme", apperrors.ErrInvalidInput), http.StatusBadRequest, apperrors.CodeInvalidInput},
		{
			"extraction stage",
			apperrors.NewStageError("extract", "https://example.com/a", apperrors.ErrExtractionFailed),
			http.StatusUnprocessableEntity, apperrors.CodeExtractionFailed,
		},
		{"summarizer down", apperrors.ErrSummarizationFailed, http.StatusBadGateway, apperrors.CodeSummarizationFailed},
		{"relay refused", fmt.Errorf("deliver: %w", apperrors.ErrTransport), http.StatusBadGateway, apperrors.CodeTransportFailure},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := setupTestContext()

			require.NoError(t, Error(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestBadRequest_UsesInvalidInputCode(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, BadRequest(c, "url is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"url is required","code":"INVALID_INPUT"}`, rec.Body.String())
}

func TestNotFound_Returns404(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, NotFound(c, "digest not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeNotFound)
}

func TestInternalError_HidesCause(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, InternalError(c, "failed to list articles"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"failed to list articles","code":"INTERNAL_ERROR"}`, rec.Body.String())
}

func TestGetHTTPStatus_PersistenceIsServerError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, getHTTPStatus(apperrors.CodePersistenceFailure))
	assert.Equal(t, http.StatusUnauthorized, getHTTPStatus(apperrors.CodeUnauthorized))
}

func TestTooLarge_Returns413(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, TooLarge(c, "email exceeds size limit"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"email exceeds size limit","code":"PAYLOAD_TOO_LARGE"}`, rec.Body.String())
}
