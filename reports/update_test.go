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
package reports

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(value string) *string {
	return &value
}

var _ = Describe("ReportUpdate", func() {
	It("is empty when no field is set", func() {
		Expect(ReportUpdate{}.Empty()).To(BeTrue())
	})

	It("is not empty once any field is set", func() {
		Expect(ReportUpdate{Currency: strPtr("VND")}.Empty()).To(BeFalse())
	})

	Describe("setClause", func() {
		It("renders only the fields that are present", func() {
			update := ReportUpdate{
				CompanyName: strPtr("Vinamilk"),
				SourceURL:   strPtr("https://example.com/report"),
			}

			sql, args := update.setClause(1)
			Expect(sql).To(Equal("company_name = $1, source_url = $2, last_updated = now()"))
			Expect(args).To(Equal([]any{"Vinamilk", "https://example.com/report"}))
		})

		It("numbers placeholders from the requested start", func() {
			update := ReportUpdate{Currency: strPtr("VND")}

			sql, args := update.setClause(3)
			Expect(sql).To(Equal("currency = $3, last_updated = now()"))
			Expect(args).To(Equal([]any{"VND"}))
		})

		It("always touches last_updated", func() {
			sql, args := ReportUpdate{}.setClause(1)
			Expect(sql).To(Equal("last_updated = now()"))
			Expect(args).To(BeEmpty())
		})

		It("renders every field in declaration order", func() {
			scrapedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
			update := ReportUpdate{
				CompanyName: strPtr("Hoa Phat Group"),
				Currency:    strPtr("VND"),
				SourceURL:   strPtr("https://example.com/hpg"),
				ScrapedAt:   &scrapedAt,
			}

			sql, args := update.setClause(1)
			Expect(sql).To(Equal("company_name = $1, currency = $2, source_url = $3, scraped_at = $4, last_updated = now()"))
			Expect(args).To(HaveLen(4))
			Expect(args[3]).To(Equal(scrapedAt))
		})
	})
})
