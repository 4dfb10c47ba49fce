// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"kar": main1,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}

func TestUsage(t *testing.T) {
	c := qt.New(t)
	var stdout, stderr bytes.Buffer

	c.Assert(run(nil, &stdout, &stderr), qt.Equals, 2)
	c.Assert(stderr.String(), qt.Matches, `(?s).*-c string.*`)

	stderr.Reset()
	c.Assert(run([]string{"-l", "-c", "dir"}, &stdout, &stderr), qt.Equals, 2)
	c.Assert(stderr.String(), qt.Equals, "kar: only one operation at a time\n")
}
