/*
 * This file is part of the KubeVirt project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Copyright The KubeVirt Authors.
 *
 */

package listen

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"kubevirt.io/vkdebug/pkg/config"
	"kubevirt.io/vkdebug/pkg/log"
	"kubevirt.io/vkdebug/pkg/vulkan/debug"
)

// Printer writes received debug messages. Handle is safe for concurrent use
// and is meant to be registered as a debug.Callback.
type Printer struct {
	lock    sync.Mutex
	out     io.Writer
	format  string
	logger  *log.FilteredLogger
	limiter *rate.Limiter
	dropped uint64
}

// NewPrinter returns a printer for the given output format. In logfmt
// output verbose-only messages need a verbosity of at least 4.
func NewPrinter(out io.Writer, format string, verbosity int) *Printer {
	logger := log.MakeLogger(log.NullLogger{})
	logger.SetIOWriter(out)
	logger.SetVerbosityLevel(verbosity)
	return &Printer{
		out:    out,
		format: format,
		logger: logger,
	}
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	verboseColor = color.New(color.Faint)
)

// SetRateLimit caps the messages written per second, allowing bursts of one
// second worth of messages. Messages over the limit are counted and dropped.
// Zero or less removes the limit.
func (p *Printer) SetRateLimit(perSecond float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if perSecond <= 0 {
		p.limiter = nil
		return
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSecond), int(math.Max(1, math.Ceil(perSecond))))
}

// Dropped returns how many messages were dropped by the rate limit.
func (p *Printer) Dropped() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dropped
}

func (p *Printer) Handle(msg *debug.Message) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.limiter != nil && !p.limiter.Allow() {
		p.dropped++
		return
	}

	switch p.format {
	case config.OutputText:
		p.printText(msg)
	default:
		p.printLogfmt(msg)
	}
}

func (p *Printer) printText(msg *debug.Message) {
	var c *color.Color
	switch {
	case msg.Severity.Error:
		c = errorColor
	case msg.Severity.Warning:
		c = warningColor
	case msg.Severity.Information:
		c = infoColor
	default:
		c = verboseColor
	}

	prefix := c.Sprintf("[%s]", msg.Severity)
	if msg.LayerPrefix != "" {
		fmt.Fprintf(p.out, "%s %s (%s): %s\n", prefix, msg.LayerPrefix, msg.Type, msg.Description)
	} else {
		fmt.Fprintf(p.out, "%s (%s): %s\n", prefix, msg.Type, msg.Description)
	}
}

func (p *Printer) printLogfmt(msg *debug.Message) {
	logger := p.logger.V(2)
	switch {
	case msg.Severity.Error:
		logger = logger.Level(log.ERROR)
	case msg.Severity.Warning:
		logger = logger.Level(log.WARNING)
	case msg.Severity.Verbose && !msg.Severity.Information:
		logger = logger.V(4).Level(log.INFO)
	default:
		logger = logger.Level(log.INFO)
	}
	logger.With(
		"type", msg.Type.String(),
		"id", msg.LayerPrefix,
		"idNumber", msg.MessageIDNumber,
	).Log("msg", msg.Description)
}
