package dialogscript

import "testing"

func TestDefaultFuncMapArithmetic(t *testing.T) {
	vm := &VirtualMachine{Program: nil, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	if err := vm.ensureInit(); err != nil {
		t.Fatalf("ensureInit: %v", err)
	}
	add := vm.FuncMap["Number.Add"].(func(float32, float32) float32)
	if got := add(2, 3); got != 5 {
		t.Errorf("Number.Add(2,3) = %v, want 5", got)
	}
	minus := vm.FuncMap["Number.Minus"].(func(float32, float32) float32)
	if got := minus(5, 3); got != 2 {
		t.Errorf("Number.Minus(5,3) = %v, want 2", got)
	}
}

func TestConvertToFloat32(t *testing.T) {
	cases := []struct {
		v    Value
		want float32
		ok   bool
	}{
		{Number(3.5), 3.5, true},
		{Bool(true), 1, true},
		{Bool(false), 0, true},
		{String("nope"), 0, false},
	}
	for _, c := range cases {
		got, err := ConvertToFloat32(c.v)
		if c.ok && err != nil {
			t.Errorf("ConvertToFloat32(%v) unexpected error: %v", c.v, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ConvertToFloat32(%v) expected error", c.v)
		}
		if c.ok && got != c.want {
			t.Errorf("ConvertToFloat32(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestRegisterFuncOverridesBuiltin(t *testing.T) {
	vm := &VirtualMachine{Program: nil, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	vm.RegisterFunc("Number.Add", func(a, b float32) float32 { return a*10 + b })
	if err := vm.ensureInit(); err != nil {
		t.Fatalf("ensureInit: %v", err)
	}
	add := vm.FuncMap["Number.Add"].(func(float32, float32) float32)
	if got := add(2, 3); got != 23 {
		t.Errorf("overridden Number.Add(2,3) = %v, want 23", got)
	}
}
