// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statusapi

import (
	"net/http"

	"github.com/android-tools/logstress/harness"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusProvider is implemented by harness.Harness.
type StatusProvider interface {
	Status() *harness.StatusDescription
}

func NewRouter(p StatusProvider) *chi.Mux {
	r := chi.NewRouter()
	r.Use(accessLogDecorator)

	r.Get("/ping", PingHandler)
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) { StatusHandler(w, r, p) })
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// NewMetricsRouter serves only /ping and /metrics.
func NewMetricsRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(accessLogDecorator)

	r.Get("/ping", PingHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

func StatusHandler(w http.ResponseWriter, r *http.Request, p StatusProvider) {
	render.JSON(w, r, p.Status())
}
