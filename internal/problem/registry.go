package problem

// Default returns a Registry pre-populated with the ten analysis names
// spec.md §4.7 enumerates, wired to this package's concrete problems.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Entry{Name: "ifds_uninit", Kind: KindIFDS, Factory: func() any { return NewUninitialized() }})
	r.Register(Entry{Name: "ifds_taint", Kind: KindIFDS, Factory: func() any { return NewTaint(nil, nil) }})
	r.Register(Entry{Name: "ifds_type", Kind: KindIFDS, Factory: func() any { return NewTypePropagation() }})
	r.Register(Entry{Name: "ide_taint", Kind: KindIDE, Factory: func() any { return NewTaintIDE(nil, nil) }})
	r.Register(Entry{Name: "ifds_solvertest", Kind: KindIFDS, Factory: func() any { return NewIFDSSolverTest() }})
	r.Register(Entry{Name: "ide_solvertest", Kind: KindIDE, Factory: func() any { return NewIDESolverTest() }})
	r.Register(Entry{Name: "mono_intra_fullconstpropagation", Kind: KindIntraMonotone, Factory: func() any { return NewConstPropagation() }})
	r.Register(Entry{Name: "mono_intra_solvertest", Kind: KindIntraMonotone, Factory: func() any { return NewIntraMonotoneSolverTest() }})
	r.Register(Entry{Name: "mono_inter_solvertest", Kind: KindInterMonotone, Factory: func() any { return NewInterMonotoneSolverTest() }})
	r.Register(Entry{Name: "none", Kind: KindNone, Factory: func() any { return nil }})
	return r
}
