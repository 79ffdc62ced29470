// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package healthcheck

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
)

var _ = ginkgo.Describe("Healthchecks API", func() {
	var (
		server      *httptest.Server
		lastMethod  string
		lastPath    string
		lastAPIKey  string
		numRequests int
		statusCode  int
	)

	ginkgo.BeforeEach(func() {
		lastMethod = ""
		lastPath = ""
		lastAPIKey = ""
		numRequests = 0
		statusCode = 0

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastMethod = r.Method
			lastPath = r.URL.Path
			lastAPIKey = r.Header.Get("X-Api-Key")
			numRequests++

			if statusCode != 0 {
				w.WriteHeader(statusCode)
				return
			}

			switch r.Method {
			case http.MethodPost:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				fmt.Fprintf(w, `{"ping_url": "%s/7918b674-12c5-4b4c-8b87-1f3e9ad6e272"}`, server.URL)
			default:
				w.WriteHeader(http.StatusOK)
			}
		}))

		origAPIURL := apiURL
		origPingURL := pingURL
		apiURL = server.URL
		pingURL = server.URL

		viper.Set("healthchecks.apikey", "test-api-key")

		ginkgo.DeferCleanup(func() {
			apiURL = origAPIURL
			pingURL = origPingURL
			viper.Set("healthchecks.apikey", "")
			server.Close()
		})
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("posts the check definition and returns the id from the ping url", func() {
			checkID, err := Create("hdldata scrape", []string{"hdldata"}, "0 6 * * *")
			Expect(err).ToNot(HaveOccurred())
			Expect(checkID).To(Equal("7918b674-12c5-4b4c-8b87-1f3e9ad6e272"))
			Expect(lastMethod).To(Equal(http.MethodPost))
			Expect(lastPath).To(Equal("/checks/"))
		})

		ginkgo.It("returns ErrStatus when the api rejects the request", func() {
			statusCode = http.StatusForbidden
			_, err := Create("hdldata scrape", nil, "0 6 * * *")
			Expect(err).To(MatchError(ErrStatus))
		})
	})

	ginkgo.Describe("Ping", func() {
		ginkgo.It("signals success for the check id", func() {
			Expect(Ping("abc123")).To(Succeed())
			Expect(lastMethod).To(Equal(http.MethodGet))
			Expect(lastPath).To(Equal("/abc123"))
		})

		ginkgo.It("does nothing when no check is configured", func() {
			Expect(Ping("")).To(Succeed())
			Expect(numRequests).To(Equal(0))
		})

		ginkgo.It("returns ErrStatus on an unknown check", func() {
			statusCode = http.StatusNotFound
			Expect(Ping("abc123")).To(MatchError(ErrStatus))
		})
	})

	ginkgo.Describe("Fail", func() {
		ginkgo.It("signals failure for the check id", func() {
			Expect(Fail("abc123")).To(Succeed())
			Expect(lastPath).To(Equal("/abc123/fail"))
		})

		ginkgo.It("does nothing when no check is configured", func() {
			Expect(Fail("")).To(Succeed())
			Expect(numRequests).To(Equal(0))
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("removes the check with the configured api key", func() {
			Expect(Delete("abc123")).To(Succeed())
			Expect(lastMethod).To(Equal(http.MethodDelete))
			Expect(lastPath).To(Equal("/checks/abc123"))
			Expect(lastAPIKey).To(Equal("test-api-key"))
		})
	})
})
