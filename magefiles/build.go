//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Every GLSL stage the renderer loads, compiled to <name>.spv next to its
// source. The catalog looks the files up under these exact names.
var shaderStages = []string{
	"gbuffer.vert",
	"gbuffer.frag",
	"lighting.vert",
	"lighting.frag",
}

// Compiles every shader stage to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, stage := range shaderStages {
		src := filepath.Join("shaders", stage)
		out := src + ".spv"
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Compiles the shaders and then the demo binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "penumbra"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the whole test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Removes compiled shaders and the demo binary.
func (Build) Clean() error {
	for _, stage := range shaderStages {
		path := filepath.Join("shaders", stage+".spv")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.RemoveAll("bin")
}
