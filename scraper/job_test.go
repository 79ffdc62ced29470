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
	"time"

	"github.com/hyper-data-lab/hdldata/data"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Job", func() {
	Describe("Finish", func() {
		It("summarizes a finished run", func() {
			job := NewJob([]string{"VNM", "FPT"}, data.QuarterlyReport, 2022, 2023)

			summary := job.Finish(6)
			Expect(summary.JobID).To(Equal(job.ID))
			Expect(summary.StartTime).To(Equal(job.StartTime))
			Expect(summary.NumReports).To(Equal(6))
			Expect(summary.EndTime.Before(summary.StartTime)).To(BeFalse())
			Expect(summary.Duration()).To(BeNumerically(">=", time.Duration(0)))
		})
	})
})
