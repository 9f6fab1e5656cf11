// Command mtcagentd is the agent core daemon entrypoint, grounded on
// cmd/aisnodeprofile/main.go's flag/profile handling and ais/daemon.go's
// Run() (version/build stamping, profile capture around the runner's
// lifetime). Device-description loading (XML/JSON parsing) and the
// adapter transport itself are external collaborators (spec.md §1); this
// binary wires a single demo device plus a stdin-fed loopback source so
// the full pipeline can be exercised end to end without either.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"syscall"

	"github.com/golang/glog"
	"github.com/teris-io/shortid"

	"github.com/mtconnect-go/agent/agentcore"
	"github.com/mtconnect-go/agent/cmn"
	"github.com/mtconnect-go/agent/cmn/cos"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/source"
)

var (
	configPath = flag.String("config", "", "path to a JSON config file (spec.md §6 options)")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memProfile = flag.String("memprofile", "", "write memory profile to `file`")
)

// set by ldflags at release build time
var (
	version string
	build   string
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	instanceID, _ := shortid.Generate()
	glog.Infof("mtcagentd %s (build %s) instance %s starting", version, build, instanceID)

	if err := cmn.LoadFromEnv(*configPath); err != nil {
		cos.Exitf("config: %v", err)
	}

	if s := *cpuProfile; s != "" {
		path := s + "." + strconv.Itoa(syscall.Getpid())
		f, err := os.Create(path)
		if err != nil {
			cos.Exitf("couldn't create cpu profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			cos.Exitf("couldn't start cpu profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	exitCode := runAgent()

	if s := *memProfile; s != "" {
		path := s + "." + strconv.Itoa(syscall.Getpid())
		f, err := os.Create(path)
		if err != nil {
			cos.Exitf("couldn't create memory profile: %v", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			cos.Exitf("couldn't write memory profile: %v", err)
		}
	}

	return exitCode
}

func runAgent() int {
	dev := demoDevice()
	owner := model.NewOwner(nil)
	if _, err := owner.Reload([]*model.Device{dev}); err != nil {
		glog.Errorf("mtcagentd: invalid device model: %v", err)
		return 1
	}

	core := agentcore.New(owner, map[string]*model.Device{dev.Name: dev}, nil)

	stdin := source.NewLoopback("stdin", dev, core.Pipeline)
	core.AddSource(stdin)
	go feedStdin(stdin)

	if err := core.Run(); err != nil {
		glog.Errorf("mtcagentd: exited with error: %v", err)
		return 1
	}
	return 0
}

// feedStdin reads SHDR lines from stdin and hands each to the loopback
// source, a stand-in for a real adapter socket connection (spec.md §1
// excludes transport implementations from this core).
func feedStdin(lb *source.Loopback) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lb.ProcessData(scanner.Text())
	}
}

// demoDevice builds a minimal single-component device exercising one of
// each observation category, standing in for a parsed device description
// (out of scope per spec.md §1) so the binary runs without external
// input.
func demoDevice() *model.Device {
	avail := &model.DataItem{ID: "avail", Name: "avail", Type: "AVAILABILITY", Category: model.Event}
	exec := &model.DataItem{ID: "execution", Name: "execution", Type: "EXECUTION", Category: model.Event}
	pos := &model.DataItem{ID: "x", Name: "x", Type: "POSITION", Category: model.Sample, SubType: "ACTUAL"}
	fault := &model.DataItem{ID: "system", Name: "system", Type: "SYSTEM", Category: model.Condition}
	assetChanged := &model.DataItem{ID: "asset_chg", Name: agentcore.AssetChangedKey, Type: "ASSET_CHANGED", Category: model.Event}
	assetRemoved := &model.DataItem{ID: "asset_rem", Name: agentcore.AssetRemovedKey, Type: "ASSET_REMOVED", Category: model.Event}

	controller := &model.Component{
		ID:   "ctrl",
		Name: "controller",
		DataItems: []*model.DataItem{
			exec, fault, assetChanged, assetRemoved,
		},
	}
	axes := &model.Component{ID: "axes", Name: "axes", DataItems: []*model.DataItem{pos}}

	return &model.Device{
		Component: model.Component{
			ID:        "dev1",
			Name:      "Demo",
			DataItems: []*model.DataItem{avail},
			Children:  []*model.Component{controller, axes},
		},
		UUID: fmt.Sprintf("demo-%s", mustID()),
	}
}

func mustID() string {
	id, err := shortid.Generate()
	if err != nil {
		return "0"
	}
	return id
}
