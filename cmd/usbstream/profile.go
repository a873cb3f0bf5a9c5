package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pkg/errors"
)

// profiler writes CPU and heap profiles for one command invocation.
type profiler struct {
	cpuPath  string
	heapPath string

	cpu *os.File
}

func (p *profiler) start() error {
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return errors.Wrap(err, "cpu profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return errors.Wrap(err, "cpu profile")
	}
	p.cpu = f
	return nil
}

// stop ends CPU profiling and writes the heap snapshot. It is safe to call
// when nothing was started.
func (p *profiler) stop() error {
	if p.cpu != nil {
		pprof.StopCPUProfile()
		err := p.cpu.Close()
		p.cpu = nil
		if err != nil {
			return errors.Wrap(err, "cpu profile")
		}
	}
	if p.heapPath == "" {
		return nil
	}
	f, err := os.Create(p.heapPath)
	if err != nil {
		return errors.Wrap(err, "heap profile")
	}
	defer f.Close()
	runtime.GC()
	return errors.Wrap(pprof.Lookup("heap").WriteTo(f, 0), "heap profile")
}
