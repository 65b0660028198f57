package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestErrorWritesEnvelopeAndRecordsCause(t *testing.T) {
	c, rec := testContext()
	Error(c, appErrors.Clone(appErrors.ErrSlotAlreadyAssigned, "class X-A already has Monday period 1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SLOT_ALREADY_ASSIGNED", envelope.Error.Code)
	require.Len(t, c.Errors, 1)
	assert.True(t, c.Errors[0].IsType(gin.ErrorTypePublic))
}

func TestErrorHidesInternalCause(t *testing.T) {
	c, rec := testContext()
	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.True(t, c.Errors[0].IsType(gin.ErrorTypePrivate))
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	c, rec := testContext()
	JSON(c, http.StatusOK, []string{}, nil, map[string]interface{}{})
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestAttachment(t *testing.T) {
	c, rec := testContext()
	Attachment(c, "timetable_class_X-A.csv", "text/csv", []byte("Day\n"))
	assert.Equal(t, `attachment; filename="timetable_class_X-A.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Day\n", rec.Body.String())
}
