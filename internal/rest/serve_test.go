// Copyright (C) 2020 Jérémie Decock
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package rest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/synth"
)

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router:=NewRouter()

	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("GET", "/api/v1/ping", nil)
	router.ServeHTTP(w, req)

	if w.Code!=200 { t.Fatalf("expected 200, got %d", w.Code) }
	if !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("expected pong, got %s", w.Body.String())
	}
}

func TestBenchRejectsBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router:=NewRouter()

	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("POST", "/api/v1/bench", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code!=http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBenchRunsForEachPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router:=NewRouter()

	dir:=t.TempDir()
	fileName:=filepath.Join(dir, "bench.fits")
	bench:=synth.Generate(synth.DefaultParams())
	if err:=fits.WriteBenchmarkFile(fileName, bench.Input, bench.Reference, bench.Metadata); err!=nil {
		t.Fatalf("writing benchmark file: %s", err)
	}

	body:=fmt.Sprintf(`{"filePatterns":[%q],"pipeline":{"type":"seq","active":true,"steps":[`+
		`{"type":"forEach","active":true,"operation":`+
		`{"type":"tailcut","active":true,"tailcut":{"highThreshold":10,"lowThreshold":5,"killIsolatedPixels":true}}}]}}`,
		fileName)
	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("POST", "/api/v1/bench", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code!=200 { t.Fatalf("expected 200, got %d\n%s", w.Code, w.Body.String()) }
	if !strings.Contains(w.Body.String(), "tailcut") {
		t.Errorf("expected tailcut in the streamed log, got:\n%s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "error:") {
		t.Errorf("pipeline run reported an error:\n%s", w.Body.String())
	}
}

func TestBenchRequiresPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router:=NewRouter()

	w:=httptest.NewRecorder()
	req, _:=http.NewRequest("POST", "/api/v1/bench", strings.NewReader(`{"filePatterns":["*.fits"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code!=http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
