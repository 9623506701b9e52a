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

// The ctmonitor binary watches the CT logs of a set of operators and
// submits every new checkpoint to a prism ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/deltadevsde/prism-ct-service/cmd"
	"github.com/deltadevsde/prism-ct-service/ledger"
	"github.com/deltadevsde/prism-ct-service/ledger/rpc"
	"github.com/deltadevsde/prism-ct-service/loglist"
	"github.com/deltadevsde/prism-ct-service/monitor"
	"github.com/deltadevsde/prism-ct-service/monitoring/prometheus"
	"github.com/deltadevsde/prism-ct-service/util"
)

var (
	directoryURL   = flag.String("directory_url", loglist.GoogleAllLogsURL, "URL of the log directory (JSON log list)")
	operators      = flag.String("operators", "Google,Cloudflare,DigiCert,Sectigo,Let's Encrypt", "Comma-separated names of operators whose logs to monitor")
	pollInterval   = flag.Duration("poll_interval", monitor.DefaultPollInterval, "How often to poll each log for a new checkpoint")
	cacheTTL       = flag.Duration("cache_ttl", loglist.DefaultTTL, "How long a fetched log directory stays fresh")
	ledgerEndpoint = flag.String("ledger_endpoint", "http://localhost:41997", "Base URL of the prism ledger")
	serviceKeyFile = flag.String("service_key", "", "Path to the service's Ed25519 signing key (PKCS#8 PEM)")
	httpEndpoint   = flag.String("http_endpoint", "", "Endpoint for HTTP metrics (host:port, empty means disabled)")
	configFile     = flag.String("config", "", "Config file containing flags, file contents can be overridden by command line flags")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *configFile != "" {
		if err := cmd.ParseFlagFile(*configFile); err != nil {
			klog.Exitf("Failed to load flags from config file %q: %s", *configFile, err)
		}
	}
	if *serviceKeyFile == "" {
		klog.Exit("Service key is missing: use the -service_key flag to set it")
	}

	signer, err := ledger.LoadSigningKey(*serviceKeyFile)
	if err != nil {
		klog.Exitf("Failed to load service key from %q: %v", *serviceKeyFile, err)
	}

	if *httpEndpoint != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			klog.Infof("Serving metrics at %s/metrics", *httpEndpoint)
			if err := http.ListenAndServe(*httpEndpoint, nil); err != nil {
				klog.Errorf("Metrics server exited: %v", err)
			}
		}()
	}

	cache := loglist.NewCache(loglist.NewClient(*directoryURL, nil), *cacheTTL, nil)
	gateway := rpc.New(*ledgerEndpoint, nil)
	supervisor := monitor.NewSupervisor(cache, gateway, signer, monitor.Options{
		PollInterval:  *pollInterval,
		MetricFactory: prometheus.MetricFactory{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go util.AwaitSignal(ctx, cancel)

	names, err := splitOperators(*operators)
	if err != nil {
		klog.Exitf("Invalid -operators flag: %v", err)
	}
	if err := supervisor.Start(ctx, names); err != nil {
		klog.Exitf("Failed to start monitoring: %v", err)
	}
	if err := supervisor.Wait(); err != nil {
		klog.Exitf("Monitoring exited: %v", err)
	}
	klog.Info("Shutdown complete")
}

func splitOperators(s string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty operator name in %q", s)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no operators given")
	}
	return names, nil
}
