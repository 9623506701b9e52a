// Copyright 2025 the prism-ct-service Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"sync"

	"github.com/deltadevsde/prism-ct-service/monitoring"
)

const logIDLabel = "log_id"

var (
	once                sync.Once
	watchersRunning     monitoring.Gauge
	polls               monitoring.Counter
	pollErrors          monitoring.Counter
	pollAnomalies       monitoring.Counter
	checkpointsObserved monitoring.Counter
	submissions         monitoring.Counter
	submissionFailures  monitoring.Counter
	submitLatency       monitoring.Histogram
)

func createMetrics(mf monitoring.MetricFactory) {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	watchersRunning = mf.NewGauge("watchers_running", "Number of log watchers currently running")
	polls = mf.NewCounter("polls", "Number of checkpoint poll attempts", logIDLabel)
	pollErrors = mf.NewCounter("poll_errors", "Number of polls that yielded no checkpoint", logIDLabel)
	pollAnomalies = mf.NewCounter("poll_anomalies", "Number of polls that yielded an unverifiable checkpoint", logIDLabel)
	checkpointsObserved = mf.NewCounter("checkpoints_observed", "Number of new verified checkpoints observed", logIDLabel)
	submissions = mf.NewCounter("submissions", "Number of checkpoint updates acknowledged by the ledger", logIDLabel)
	submissionFailures = mf.NewCounter("submission_failures", "Number of failed submission attempts", logIDLabel)
	submitLatency = mf.NewHistogram("submit_latency_seconds", "Latency of acknowledged ledger submissions", logIDLabel)
}
