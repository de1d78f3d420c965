package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusCreated, w.Code)
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err         error
		wantStatus  int
		wantCode    pkgerrors.Code
		wantMessage string
	}{
		{pkgerrors.Validation("insufficient_balance", "amount exceeds available balance"), http.StatusBadRequest, pkgerrors.CodeValidation, "amount exceeds available balance"},
		{pkgerrors.InvalidTransition("payout", "paid", "approved"), http.StatusBadRequest, pkgerrors.CodeInvalidTransition, "payout is paid, must be approved"},
		{pkgerrors.New(pkgerrors.CodeNotFound, "payout not found"), http.StatusNotFound, pkgerrors.CodeNotFound, "payout not found"},
		{pkgerrors.New(pkgerrors.CodeForbidden, "vendor not approved"), http.StatusForbidden, pkgerrors.CodeForbidden, "vendor not approved"},
		{pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "load vendor"), http.StatusServiceUnavailable, pkgerrors.CodeDependency, "dependency unavailable"},
		{errors.New("raw failure"), http.StatusInternalServerError, pkgerrors.CodeInternal, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(string(tc.wantCode), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			var body types.ErrorEnvelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, string(tc.wantCode), body.Error.Code)
			assert.Equal(t, tc.wantMessage, body.Error.Message)
		})
	}
}

func TestWriteErrorIncludesTransitionDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.InvalidTransition("payout", "approved", "requested"))

	var body struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "approved", body.Error.Details["current_status"])
	assert.Equal(t, "requested", body.Error.Details["required_status"])
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "secret").WithDetails(map[string]string{"dsn": "postgres://"})
	WriteError(context.Background(), nil, w, err)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Nil(t, body.Error.Details)
	assert.NotEqual(t, "secret", body.Error.Message)
}
