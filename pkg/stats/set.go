// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stats

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/VividCortex/gohistogram"
	"github.com/prometheus/client_golang/prometheus"
)

// This file provides prometheus/streamz style metrics (Val type) for instrumenting code for monitoring.
// It also provides a registry for such metrics (set type) and a global default registry.
//
// Simple uses of metrics:
//
//	statFoo := stats.Create("metric name", "metric description")
//	statFoo.Add(1)
//
//	stats.Create("metric name", "metric description", func() int { return len(workers) })
//
// Collect returns values of all registered metrics for printing,
// WriteTextfile exports metrics with the Prometheus option in the node exporter textfile format.

type UI struct {
	Name  string
	Desc  string
	Level Level
	Value string
	V     int
}

type Level int

const (
	All Level = iota
	Simple
	Console
)

// Prometheus exports the metric under the given name.
type Prometheus string

// Distribution keeps a histogram of added values instead of their sum.
// Val returns the mean, Quantile returns percentiles.
type Distribution struct{}

const histogramBuckets = 255

func Create(name, desc string, opts ...any) *Val {
	return global.Create(name, desc, opts...)
}

func Collect(level Level) []UI {
	return global.Collect(level)
}

func WriteTextfile(filename string) error {
	return global.WriteTextfile(filename)
}

var global = newSet()

type set struct {
	mu       sync.Mutex
	vals     map[string]*Val
	registry *prometheus.Registry
}

func newSet() *set {
	return &set{
		vals:     make(map[string]*Val),
		registry: prometheus.NewRegistry(),
	}
}

// Additionally a custom 'func() int' can be passed to read the metric value from the function.
func (s *set) Create(name, desc string, opts ...any) *Val {
	v := &Val{
		name: name,
		desc: desc,
	}
	var promName string
	for _, o := range opts {
		switch opt := o.(type) {
		case Level:
			v.level = opt
		case func() int:
			v.ext = opt
		case Prometheus:
			promName = string(opt)
		case Distribution:
			v.hist = true
		default:
			panic(fmt.Sprintf("unknown stats option %#v", o))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vals[name] != nil {
		panic(fmt.Sprintf("duplicate stat %q", name))
	}
	s.vals[name] = v
	if promName != "" {
		// Prometheus Instrumentation https://prometheus.io/docs/guides/go-application.
		s.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: promName,
			Help: desc,
		},
			func() float64 { return float64(v.Val()) },
		))
	}
	return v
}

func (s *set) Collect(level Level) []UI {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []UI
	for _, v := range s.vals {
		if v.level < level {
			continue
		}
		val := v.Val()
		res = append(res, UI{
			Name:  v.name,
			Desc:  v.desc,
			Level: v.level,
			Value: strconv.Itoa(val),
			V:     val,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Level != res[j].Level {
			return res[i].Level > res[j].Level
		}
		return res[i].Name < res[j].Name
	})
	return res
}

func (s *set) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, s.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

type Val struct {
	name    string
	desc    string
	level   Level
	val     atomic.Int64
	ext     func() int
	hist    bool
	histMu  sync.Mutex
	histVal *gohistogram.NumericHistogram
}

func (v *Val) Add(val int) {
	if v.ext != nil {
		panic(fmt.Sprintf("stat %v is in external mode", v.name))
	}
	if v.hist {
		v.histMu.Lock()
		if v.histVal == nil {
			v.histVal = gohistogram.NewHistogram(histogramBuckets)
		}
		v.histVal.Add(float64(val))
		v.histMu.Unlock()
		return
	}
	v.val.Add(int64(val))
}

func (v *Val) Val() int {
	if v.ext != nil {
		return v.ext()
	}
	if v.hist {
		v.histMu.Lock()
		defer v.histMu.Unlock()
		if v.histVal == nil {
			return 0
		}
		return int(v.histVal.Mean())
	}
	return int(v.val.Load())
}

// Quantile returns the q-th quantile of a distribution, 0 if nothing was added.
func (v *Val) Quantile(q float64) int {
	if !v.hist {
		panic(fmt.Sprintf("stat %v is not a distribution", v.name))
	}
	v.histMu.Lock()
	defer v.histMu.Unlock()
	if v.histVal == nil {
		return 0
	}
	return int(v.histVal.Quantile(q))
}
