// Package esbuild adapts the esbuild transform API to the transpiler port.
package esbuild

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Transpiler = (*Transpiler)(nil)

// Transpiler compiles JS/JSX/TS/TSX module sources one file at a time.
// Output is CommonJS flavored so import statements become require calls the
// bundle runtime can resolve.
type Transpiler struct{}

// NewTranspiler creates a Transpiler.
func NewTranspiler() *Transpiler {
	return &Transpiler{}
}

// Transform implements ports.Transpiler.
func (t *Transpiler) Transform(_ context.Context, path, source string, opts ports.TranspileOptions) (ports.TranspileResult, error) {
	options := api.TransformOptions{
		Loader:     loaderFor(opts.Loader),
		Format:     api.FormatCommonJS,
		Target:     targetFor(opts.TargetSyntax),
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	}
	if opts.SourceMap {
		options.Sourcemap = api.SourceMapExternal
	}
	if opts.Minify {
		options.MinifyWhitespace = true
		options.MinifyIdentifiers = true
		options.MinifySyntax = true
	}

	result := api.Transform(source, options)
	if len(result.Errors) > 0 {
		err := errors.Join(domain.ErrTransformFailed, errors.New(messageText(result.Errors)))
		return ports.TranspileResult{}, zerr.With(err, "path", path)
	}

	return ports.TranspileResult{
		Code: string(result.Code),
		Map:  result.Map,
	}, nil
}

func loaderFor(ext string) api.Loader {
	switch strings.ToLower(ext) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

func targetFor(syntax string) api.Target {
	switch strings.ToLower(syntax) {
	case "es2015", "es6":
		return api.ES2015
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	case "esnext", "":
		return api.ESNext
	default:
		return api.ESNext
	}
}

// messageText flattens esbuild diagnostics into one line per message.
func messageText(messages []api.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		text := msg.Text
		if msg.Location != nil {
			text = msg.Location.File + ":" + strconv.Itoa(msg.Location.Line) + ": " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "; ")
}
