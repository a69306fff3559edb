package engine

import (
	"fmt"
	"strings"

	"github.com/san-kum/shoresim/internal/matlab"
)

const (
	scriptName = "shoresim_run"
	outputFile = "shoresim_out.json"
	errorFile  = "shoresim_error.txt"

	// exit status the script uses for errors it caught itself
	modelFailedExit = 3
)

// renderScript produces the batch script for call. The script runs in the
// session's scratch directory, writes every export it can evaluate to
// outputFile and, when anything throws, writes the message to errorFile and
// exits with modelFailedExit. Exports that fail to evaluate are skipped so a
// partial result stays visible to the caller.
func renderScript(call Call) (string, error) {
	if err := call.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("% generated by shoresim; do not edit\n")
	b.WriteString("try\n")

	for _, p := range call.Paths {
		lit, err := matlab.Encode(p)
		if err != nil {
			return "", fmt.Errorf("%w: path %q: %v", ErrInvalidCall, p, err)
		}
		fmt.Fprintf(&b, "    addpath(genpath(%s));\n", lit)
	}

	args := make([]string, len(call.Args))
	for i, a := range call.Args {
		lit, err := matlab.Encode(a)
		if err != nil {
			return "", fmt.Errorf("%w: argument %d: %v", ErrInvalidCall, i+1, err)
		}
		args[i] = fmt.Sprintf("shoresim_arg%d", i+1)
		fmt.Fprintf(&b, "    %s = %s;\n", args[i], lit)
	}

	invoke := fmt.Sprintf("%s(%s)", call.Function, strings.Join(args, ", "))
	switch len(call.Outputs) {
	case 0:
		fmt.Fprintf(&b, "    %s;\n", invoke)
	case 1:
		fmt.Fprintf(&b, "    %s = %s;\n", call.Outputs[0], invoke)
	default:
		fmt.Fprintf(&b, "    [%s] = %s;\n", strings.Join(call.Outputs, ", "), invoke)
	}

	fmt.Fprintf(&b, "    shoresim_fid = fopen('%s', 'w');\n", outputFile)
	b.WriteString("    shoresim_sep = '';\n")
	b.WriteString("    fprintf(shoresim_fid, '{');\n")
	for _, e := range call.Export {
		b.WriteString("    try\n")
		fmt.Fprintf(&b, "        shoresim_v = double(%s);\n", e)
		fmt.Fprintf(&b, "        fprintf(shoresim_fid, '%%s\"%s\":%%s', shoresim_sep, jsonencode(struct('size', size(shoresim_v), 'data', reshape(shoresim_v, 1, []))));\n", e)
		b.WriteString("        shoresim_sep = ',';\n")
		b.WriteString("    catch\n")
		b.WriteString("    end\n")
	}
	b.WriteString("    fprintf(shoresim_fid, '}');\n")
	b.WriteString("    fclose(shoresim_fid);\n")

	b.WriteString("catch shoresim_err\n")
	fmt.Fprintf(&b, "    shoresim_efid = fopen('%s', 'w');\n", errorFile)
	b.WriteString("    fprintf(shoresim_efid, '%s', shoresim_err.message);\n")
	b.WriteString("    fclose(shoresim_efid);\n")
	fmt.Fprintf(&b, "    exit(%d);\n", modelFailedExit)
	b.WriteString("end\n")
	b.WriteString("exit(0);\n")
	return b.String(), nil
}
