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
package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/hyper-data-lab/hdldata/data"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const samplePayload = `{
	"symbol": "VNM",
	"companyName": "Vietnam Dairy Products JSC",
	"currency": "VND",
	"reports": [
		{
			"year": 2023,
			"quarter": 0,
			"url": "https://s.cafef.vn/bao-cao/vnm-2023",
			"balanceSheet": [
				{"code": "bs.100", "name": "Current assets", "value": 35812000000}
			],
			"incomeStatement": [
				{"code": "is.10", "name": "Net revenue", "value": 60369000000}
			],
			"cashFlow": [
				{"code": "cf.20", "name": "Operating cash flow", "value": 9873000000}
			]
		},
		{
			"year": 2023,
			"quarter": 4,
			"url": "https://s.cafef.vn/bao-cao/vnm-2023-q4",
			"balanceSheet": [],
			"incomeStatement": [
				{"code": "is.10", "name": "Net revenue", "value": 15821000000}
			],
			"cashFlow": []
		}
	]
}`

var _ = Describe("parseReports", func() {
	It("maps annual documents to a nil quarter", func() {
		reportList, err := parseReports("VNM", []byte(samplePayload))
		Expect(err).NotTo(HaveOccurred())
		Expect(reportList).To(HaveLen(2))

		annual := reportList[0]
		Expect(annual.ReportType).To(Equal(data.AnnualReport))
		Expect(annual.ReportQuarter).To(BeNil())
		Expect(annual.ReportYear).To(Equal(2023))
	})

	It("maps quarterly documents to their quarter", func() {
		reportList, err := parseReports("VNM", []byte(samplePayload))
		Expect(err).NotTo(HaveOccurred())

		quarterly := reportList[1]
		Expect(quarterly.ReportType).To(Equal(data.QuarterlyReport))
		Expect(quarterly.ReportQuarter).NotTo(BeNil())
		Expect(*quarterly.ReportQuarter).To(Equal(4))
	})

	It("normalizes the symbol", func() {
		reportList, err := parseReports("VNM", []byte(samplePayload))
		Expect(err).NotTo(HaveOccurred())
		Expect(reportList[0].Symbol).To(Equal("vnm"))
	})

	It("carries document metadata onto every report", func() {
		reportList, err := parseReports("VNM", []byte(samplePayload))
		Expect(err).NotTo(HaveOccurred())
		Expect(reportList[0].CompanyName).To(Equal("Vietnam Dairy Products JSC"))
		Expect(reportList[0].Currency).To(Equal("VND"))
		Expect(reportList[0].SourceURL).To(Equal("https://s.cafef.vn/bao-cao/vnm-2023"))
	})

	It("attaches statement line items", func() {
		reportList, err := parseReports("VNM", []byte(samplePayload))
		Expect(err).NotTo(HaveOccurred())

		annual := reportList[0]
		Expect(annual.BalanceSheet).To(HaveLen(1))
		Expect(annual.BalanceSheet[0].ItemCode).To(Equal("bs.100"))
		Expect(annual.IncomeStatement).To(HaveLen(1))
		Expect(annual.CashFlow).To(HaveLen(1))

		quarterly := reportList[1]
		Expect(quarterly.BalanceSheet).To(BeEmpty())
		Expect(quarterly.IncomeStatement).To(HaveLen(1))
	})

	It("rejects malformed payloads", func() {
		_, err := parseReports("VNM", []byte("<html>rate limited</html>"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CafeF Fetch", func() {
	var server *httptest.Server

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("streams every report for the requested symbols and years", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Query().Get("symbol")).To(Equal("VNM"))
			Expect(r.URL.Query().Get("type")).To(Equal("quarterly"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(samplePayload))
		}))

		cafef := &CafeF{BaseURL: server.URL}
		job := NewJob([]string{"VNM"}, data.QuarterlyReport, 2023, 2023)

		out := make(chan *data.FinancialReport, 10)
		numReports, err := cafef.Fetch(context.Background(), job, out)
		close(out)

		Expect(err).NotTo(HaveOccurred())
		Expect(numReports).To(Equal(2))

		var received []*data.FinancialReport
		for report := range out {
			received = append(received, report)
		}
		Expect(received).To(HaveLen(2))
		Expect(received[0].Symbol).To(Equal("vnm"))
	})

	It("skips symbols the upstream rejects and keeps going", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("symbol") == "BAD" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(samplePayload))
		}))

		cafef := &CafeF{BaseURL: server.URL}
		job := NewJob([]string{"BAD", "VNM"}, data.QuarterlyReport, 2023, 2023)

		out := make(chan *data.FinancialReport, 10)
		numReports, err := cafef.Fetch(context.Background(), job, out)
		close(out)

		Expect(err).NotTo(HaveOccurred())
		Expect(numReports).To(Equal(2))
	})

	It("stops when the context is cancelled", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(samplePayload))
		}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cafef := &CafeF{BaseURL: server.URL}
		job := NewJob([]string{"VNM"}, data.QuarterlyReport, 2023, 2023)

		out := make(chan *data.FinancialReport, 10)
		_, err := cafef.Fetch(ctx, job, out)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewJob", func() {
	It("normalizes every symbol", func() {
		job := NewJob([]string{"VNM", " Fpt "}, data.AnnualReport, 2020, 2024)
		Expect(job.Symbols).To(Equal([]string{"vnm", "fpt"}))
	})

	It("assigns a unique job id", func() {
		left := NewJob([]string{"vnm"}, data.AnnualReport, 2024, 2024)
		right := NewJob([]string{"vnm"}, data.AnnualReport, 2024, 2024)
		Expect(left.ID).NotTo(Equal(right.ID))
	})
})
