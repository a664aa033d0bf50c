// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig disables the stdlib prelude and the bytecode cache so these
// golden tests never touch the filesystem beyond the single source file
// Compile/Check reads.
func testConfig() CompilationConfig {
	cfg := DefaultConfig()
	cfg.Stdlib = false
	cfg.NoCache = true

	return cfg
}

func writeSource(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "main.spwn")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	return path
}

// S1 (spec.md §8): a module that returns a non-dict value is rejected.
func TestPipelineRejectsNonDictModuleReturn(t *testing.T) {
	path := writeSource(t, "x = 3\nreturn x + 4\n")

	p := NewPipeline(testConfig())
	_, _, err := p.Compile(context.Background(), path)

	assert.Error(t, err)
}

// S2 (spec.md §8): `return { a: 1, b: 2 }` compiles and runs with no error
// and no diagnostic; the exported values themselves are not inspected.
func TestPipelineModuleReturnExports(t *testing.T) {
	path := writeSource(t, "return { a: 1, b: 2 }\n")

	p := NewPipeline(testConfig())

	g, diags, err := p.Compile(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.NotNil(t, g)
}

// S4 (spec.md §8): default macro arguments let a call omit a trailing
// argument.
func TestPipelineMacroDefaultArgs(t *testing.T) {
	path := writeSource(t, "m = (a, b=2) => a + b\nreturn { sum: m(3) }\n")

	p := NewPipeline(testConfig())

	_, diags, err := p.Compile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

// TestPipelineCheckNoVMRun verifies Check stops before running the VM: a
// program whose module-return is a non-dict is only a runtime fault (S1),
// so Check - which never constructs a Machine - reports it as clean.
func TestPipelineCheckNoVMRun(t *testing.T) {
	path := writeSource(t, "x = 3\nreturn x + 4\n")

	p := NewPipeline(testConfig())

	diags, err := p.Check(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, diags)
}
