package valbind

import (
	"fmt"

	internal "github.com/valbind/valbind/internal"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

type wazeroEngine struct {
	internal.Engine
	config internal.IEngineConfig
}

func (we *wazeroEngine) NewFunctionExporterForModule(guest wazero.CompiledModule) FunctionExporter {
	return &functionExporter{
		config: we.config,
		guest:  guest,
	}
}

// FunctionExporter configures the functions in the "env" module a guest
// imports to reach the host runtime.
type FunctionExporter interface {
	// ExportFunctions builds functions to export with a
	// wazero.HostModuleBuilder named "env".
	ExportFunctions(wazero.HostModuleBuilder) error
}

type functionExporter struct {
	config internal.IEngineConfig
	guest  wazero.CompiledModule
}

// ExportFunctions implements FunctionExporter.ExportFunctions
func (e *functionExporter) ExportFunctions(b wazero.HostModuleBuilder) error {
	if len(e.guest.ExportedMemories()) == 0 {
		return fmt.Errorf("the guest module does not export its memory")
	}

	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64
	f64 := api.ValueTypeF64

	b.NewFunctionBuilder().
		WithName("value_incref").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueIncref, []api.ValueType{i32}, []api.ValueType{}).
		Export("value_incref")

	b.NewFunctionBuilder().
		WithName("value_decref").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueDecref, []api.ValueType{i32}, []api.ValueType{}).
		Export("value_decref")

	b.NewFunctionBuilder().
		WithName("value_undefined").
		WithGoModuleFunction(internal.ValueUndefined, []api.ValueType{}, []api.ValueType{i32}).
		Export("value_undefined")

	b.NewFunctionBuilder().
		WithName("value_none").
		WithGoModuleFunction(internal.ValueNone, []api.ValueType{}, []api.ValueType{i32}).
		Export("value_none")

	b.NewFunctionBuilder().
		WithName("value_is_none").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueIsNone, []api.ValueType{i32}, []api.ValueType{i32}).
		Export("value_is_none")

	b.NewFunctionBuilder().
		WithName("value_new_bool").
		WithParameterNames("value").
		WithGoModuleFunction(internal.ValueNewBool, []api.ValueType{i32}, []api.ValueType{i32}).
		Export("value_new_bool")

	b.NewFunctionBuilder().
		WithName("value_new_int").
		WithParameterNames("value").
		WithGoModuleFunction(internal.ValueNewInt, []api.ValueType{i64}, []api.ValueType{i32}).
		Export("value_new_int")

	b.NewFunctionBuilder().
		WithName("value_new_float").
		WithParameterNames("value").
		WithGoModuleFunction(internal.ValueNewFloat, []api.ValueType{f64}, []api.ValueType{i32}).
		Export("value_new_float")

	b.NewFunctionBuilder().
		WithName("value_new_string").
		WithParameterNames("ptr", "len").
		WithGoModuleFunction(internal.ValueNewString, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("value_new_string")

	b.NewFunctionBuilder().
		WithName("value_new_string_utf16").
		WithParameterNames("ptr", "units").
		WithGoModuleFunction(internal.ValueNewStringUTF16, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("value_new_string_utf16")

	b.NewFunctionBuilder().
		WithName("value_bool").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueBool, []api.ValueType{i32}, []api.ValueType{i32}).
		Export("value_bool")

	b.NewFunctionBuilder().
		WithName("value_int").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueInt, []api.ValueType{i32}, []api.ValueType{i64}).
		Export("value_int")

	b.NewFunctionBuilder().
		WithName("value_float").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueFloat, []api.ValueType{i32}, []api.ValueType{f64}).
		Export("value_float")

	b.NewFunctionBuilder().
		WithName("value_string_into").
		WithParameterNames("handle", "ptr", "cap").
		WithGoModuleFunction(internal.ValueStringInto, []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export("value_string_into")

	b.NewFunctionBuilder().
		WithName("value_new_list").
		WithParameterNames("size_hint").
		WithGoModuleFunction(internal.ValueNewList, []api.ValueType{i32}, []api.ValueType{i32}).
		Export("value_new_list")

	b.NewFunctionBuilder().
		WithName("value_list_append").
		WithParameterNames("list", "item").
		WithGoModuleFunction(internal.ValueListAppend, []api.ValueType{i32, i32}, []api.ValueType{}).
		Export("value_list_append")

	b.NewFunctionBuilder().
		WithName("value_list_set").
		WithParameterNames("list", "index", "item").
		WithGoModuleFunction(internal.ValueListSet, []api.ValueType{i32, i32, i32}, []api.ValueType{}).
		Export("value_list_set")

	b.NewFunctionBuilder().
		WithName("value_list_get").
		WithParameterNames("list", "index").
		WithGoModuleFunction(internal.ValueListGet, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("value_list_get")

	b.NewFunctionBuilder().
		WithName("value_new_dict").
		WithGoModuleFunction(internal.ValueNewDict, []api.ValueType{}, []api.ValueType{i32}).
		Export("value_new_dict")

	b.NewFunctionBuilder().
		WithName("value_dict_set").
		WithParameterNames("dict", "key", "value").
		WithGoModuleFunction(internal.ValueDictSet, []api.ValueType{i32, i32, i32}, []api.ValueType{}).
		Export("value_dict_set")

	b.NewFunctionBuilder().
		WithName("value_dict_get").
		WithParameterNames("dict", "key").
		WithGoModuleFunction(internal.ValueDictGet, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("value_dict_get")

	b.NewFunctionBuilder().
		WithName("value_length").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ValueLength, []api.ValueType{i32}, []api.ValueType{i32}).
		Export("value_length")

	b.NewFunctionBuilder().
		WithName("value_get_property").
		WithParameterNames("handle", "name").
		WithGoModuleFunction(internal.ValueGetProperty, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("value_get_property")

	b.NewFunctionBuilder().
		WithName("value_set_property").
		WithParameterNames("handle", "name", "value").
		WithGoModuleFunction(internal.ValueSetProperty, []api.ValueType{i32, i32, i32}, []api.ValueType{}).
		Export("value_set_property")

	b.NewFunctionBuilder().
		WithName("value_call").
		WithParameterNames("name", "this", "argv", "argc").
		WithGoModuleFunction(internal.ValueCall, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}).
		Export("value_call")

	b.NewFunctionBuilder().
		WithName("value_raise_error").
		WithParameterNames("message").
		WithGoModuleFunction(internal.ValueRaiseError, []api.ValueType{i32}, []api.ValueType{}).
		Export("value_raise_error")

	return nil
}
