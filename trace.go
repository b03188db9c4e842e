package dialogscript

import (
	"fmt"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/fableforge/dialogscript/bytecode"
)

// FormatInstruction renders a single instruction for TraceLogf and error
// messages, e.g. PUSH_STRING "Hello, {0}!". Operand values are formatted
// with repr so strings are quoted and escaped unambiguously, the same
// convention the teacher's FormatProgram debug printer uses.
func FormatInstruction(inst bytecode.Instruction) string {
	var b strings.Builder
	b.WriteString(inst.Opcode.String())
	for _, op := range inst.Operands {
		b.WriteByte(' ')
		switch op.Kind {
		case bytecode.OperandString:
			b.WriteString(repr.String(op.StringValue))
		case bytecode.OperandFloat:
			fmt.Fprintf(&b, "%v", op.FloatValue)
		case bytecode.OperandBool:
			fmt.Fprintf(&b, "%v", op.BoolValue)
		}
	}
	return b.String()
}

// FormatProgram renders every node and instruction in p, one node per
// section, instructions prefixed with their index so a jump target (the
// compiler emits labels as instruction indices) is easy to spot-check.
func FormatProgram(p *bytecode.Program) string {
	var b strings.Builder
	for name, node := range p.Nodes {
		fmt.Fprintf(&b, "node %s:\n", name)
		if len(node.Tags) > 0 {
			fmt.Fprintf(&b, "  tags: %s\n", strings.Join(node.Tags, ", "))
		}
		for i, inst := range node.Instructions {
			fmt.Fprintf(&b, "  %06d %s\n", i, FormatInstruction(inst))
		}
		if len(node.Labels) > 0 {
			b.WriteString("  labels:\n")
			for label, pc := range node.Labels {
				fmt.Fprintf(&b, "    %s -> %06d\n", label, pc)
			}
		}
	}
	return b.String()
}
