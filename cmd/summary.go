package cmd

import (
	"fmt"
	"io"
	"sort"

	"dirpack/helpers"
	"dirpack/model"
	"dirpack/pack"
)

func printResult(w io.Writer, result *pack.Result, savePath string) {
	ref := result.Reference
	target := ref.TargetPath
	if target == "" {
		target = "/"
	}

	helpers.PrintHeader(w, fmt.Sprintf("%s @ %s", ref.FullName(), ref.Branch))
	helpers.PrintDetail(w, "path:     "+target)
	helpers.PrintInfo(w, "saved to: "+savePath)

	s := result.Summary
	switch {
	case s.Total == 0:
		helpers.PrintWarning(w, "no files matched")
	case s.OK():
		helpers.PrintSuccess(w, fmt.Sprintf("downloaded %d files (%s)", s.Succeeded, helpers.FormatBytes(s.Bytes)))
	default:
		helpers.PrintWarning(w, fmt.Sprintf("downloaded %d of %d files (%s)", s.Succeeded, s.Total, helpers.FormatBytes(s.Bytes)))

		kinds := make([]model.ErrorKind, 0, len(s.ByKind))
		for k := range s.ByKind {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			helpers.PrintError(w, fmt.Sprintf("%s: %d", k, s.ByKind[k]))
		}
		for _, o := range s.Failures {
			fmt.Fprintf(w, "  %s %s\n", helpers.FError(o.Kind.String()), o.Task.Path)
			if o.Err != nil {
				helpers.PrintDetail(w, "    "+o.Err.Error())
			}
		}
	}

	if result.Truncated {
		helpers.PrintWarning(w, "GitHub truncated the tree listing; some files may be missing")
	}
}
