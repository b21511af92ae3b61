//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
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

// Chartfeed runs a chart widget definition headless: it loads the
// historical window from a device management backend, keeps the
// series updated over the push channel and logs dataset summaries
// on every redraw.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chartfeed/chartfeed/cache"
	"github.com/chartfeed/chartfeed/chart"
	"github.com/chartfeed/chartfeed/client"
	"github.com/chartfeed/chartfeed/realtime"
	"github.com/chartfeed/chartfeed/widget"
)

var (
	Version                = "0.1.0"
	buildTime, gitRevision string
)

func parseFlags() (cfgPath, device, cacheSpec, pushSpec string, version bool) {

	// Parse the flags, if any
	flag.StringVar(&cfgPath, "c", "./etc/widget.toml", "path to widget config file")
	flag.StringVar(&device, "device", "", "dashboard device override")
	flag.StringVar(&cacheSpec, "cache", "memory", "cache store: memory | pebble:dir | postgres:connect_string")
	flag.StringVar(&pushSpec, "push", "", "push transport: mqtt:addr | nats:url (empty for timer only)")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.Parse()

	return
}

func printVersion() {
	fmt.Printf("Chartfeed version: %v\n", Version)
	if buildTime != "" {
		fmt.Printf("Build time: %v\n", buildTime)
	}
	if gitRevision != "" {
		fmt.Printf("Git revision: %v\n", gitRevision)
	}

}

func openStore(spec string) (cache.Store, error) {
	switch {
	case spec == "memory":
		return cache.NewMemoryStore(64)
	case strings.HasPrefix(spec, "pebble:"):
		return cache.NewPebbleStore(strings.TrimPrefix(spec, "pebble:"))
	case strings.HasPrefix(spec, "postgres:"):
		return cache.NewPostgresStore(strings.TrimPrefix(spec, "postgres:"), "")
	}
	return nil, fmt.Errorf("invalid cache spec: %q", spec)
}

func openSubscriber(spec string) (realtime.Subscriber, error) {
	switch {
	case spec == "":
		return nil, nil
	case strings.HasPrefix(spec, "mqtt:"):
		return realtime.NewMQTTSubscriber(strings.TrimPrefix(spec, "mqtt:"), "chartfeed")
	case strings.HasPrefix(spec, "nats:"):
		return realtime.NewNATSSubscriber(strings.TrimPrefix(spec, "nats:"))
	}
	return nil, fmt.Errorf("invalid push spec: %q", spec)
}

func main() {

	cfgPath, device, cacheSpec, pushSpec, version := parseFlags()

	if version {
		printVersion()
		return
	}

	cfg, err := chart.ReadConfig(cfgPath)
	if err != nil {
		log.Fatalf("ERROR: reading config: %v", err)
	}

	store, err := openStore(cacheSpec)
	if err != nil {
		log.Fatalf("ERROR: opening cache: %v", err)
	}
	defer store.Close()

	sub, err := openSubscriber(pushSpec)
	if err != nil {
		log.Fatalf("ERROR: opening push transport: %v", err)
	}
	if sub != nil {
		defer sub.Close()
	}

	fetcher := client.NewFetcher(client.NewHTTPClient(
		os.Getenv("CHARTFEED_URL"),
		os.Getenv("CHARTFEED_TENANT"),
		os.Getenv("CHARTFEED_USER"),
		os.Getenv("CHARTFEED_PASS")))

	w := widget.New(cfg, fetcher, store, sub)
	if device != "" {
		w.SetDeviceTarget(device)
	}
	w.OnRedraw(func() {
		for _, d := range w.Datasets() {
			log.Printf("%s: %d points, %d buckets", d.Label, len(d.Data), len(d.Counts))
		}
	})

	if err := w.Load(context.Background()); err != nil {
		log.Fatalf("ERROR: loading widget: %v", err)
	}
	if ok, msg := w.Enabled(); !ok {
		log.Printf("Widget disabled: %s", msg)
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Printf("Got %v, shutting down.", s)

	if err := w.Close(); err != nil {
		log.Printf("ERROR: on close: %v", err)
	}
}
