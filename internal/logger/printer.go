package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Printer adapts the context logger to the Println/Printf interface used by
// libraries such as paho.mqtt.golang.
type Printer struct {
	// ctx carries the logger to write to.
	ctx context.Context //nolint:containedctx // The printer is a bridge for context-free libraries.
	// level is the level every line is written at.
	level zapcore.Level
}

// NewPrinter returns a Printer writing at level.
func NewPrinter(ctx context.Context, level zapcore.Level) *Printer {
	return &Printer{ctx: ctx, level: level}
}

// Println writes the operands joined by spaces.
func (p *Printer) Println(v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf writes a formatted line.
func (p *Printer) Printf(format string, v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (p *Printer) write(message string) {
	FromContext(p.ctx).Logw(p.level, message)
}
