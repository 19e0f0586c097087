// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statusapi

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/android-tools/logstress/harness"
	"github.com/android-tools/logstress/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStatus struct {
	desc *harness.StatusDescription
}

func (s staticStatus) Status() *harness.StatusDescription {
	return s.desc
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	rec := get(t, NewRouter(staticStatus{}), "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestStatus(t *testing.T) {
	desc := &harness.StatusDescription{
		RunID:     "3f1c",
		State:     harness.StateDescription{Name: harness.Sleeping, LastModified: 1700000000000},
		Buffer:    "main",
		ElapsedMs: 1500,
	}
	rec := get(t, NewRouter(staticStatus{desc: desc}), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "3f1c", got["runId"])
	assert.Equal(t, "main", got["buffer"])
	assert.EqualValues(t, 1500, got["elapsedMs"])
	assert.Equal(t, "Sleeping", got["state"].(map[string]interface{})["name"])
	_, hasOutcome := got["outcome"]
	assert.False(t, hasOutcome)
}

func TestMetrics(t *testing.T) {
	metrics.GeneratorKills.Inc()

	rec := get(t, NewMetricsRouter(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := ioutil.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logstress_generator_kills_total")
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, NewRouter(staticStatus{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
