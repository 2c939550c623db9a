package chain

import (
	"encoding/binary"
	"fmt"
)

// Opcodes da VM usados na montagem de scripts de invocação.
const (
	opPushInt8  = 0x00
	opPushInt16 = 0x01
	opPushInt32 = 0x02
	opPushInt64 = 0x03
	opPushData1 = 0x0C
	opPushData2 = 0x0D
	opPushData4 = 0x0E
	opPushM1    = 0x0F
	opPush0     = 0x10
	opSyscall   = 0x41
	opPack      = 0xC0
)

// Hashes de interop (little-endian, como serializados após SYSCALL).
var (
	syscallContractCall = [4]byte{0x62, 0x7d, 0x5b, 0x52} // System.Contract.Call
	syscallCheckSig     = [4]byte{0x56, 0xe7, 0xb3, 0x27} // System.Crypto.CheckSig
)

// callFlagsAll autoriza leitura, escrita e notificações na chamada.
const callFlagsAll = 15

// ParamType identifica o tipo de um argumento de contrato no wire.
type ParamType string

const (
	ParamHash160   ParamType = "Hash160"
	ParamByteArray ParamType = "ByteArray"
	ParamString    ParamType = "String"
	ParamInteger   ParamType = "Integer"
)

// ContractParam é um argumento posicional de invocação. A ordem e o tipo
// fazem parte do formato do contrato e nunca podem ser alterados.
type ContractParam struct {
	Type  ParamType
	Hash  Uint160 // ParamHash160
	Bytes []byte  // ParamByteArray
	Str   string  // ParamString
	Int   int64   // ParamInteger
}

func Hash160Param(h Uint160) ContractParam  { return ContractParam{Type: ParamHash160, Hash: h} }
func ByteArrayParam(b []byte) ContractParam { return ContractParam{Type: ParamByteArray, Bytes: b} }
func StringParam(s string) ContractParam    { return ContractParam{Type: ParamString, Str: s} }
func IntegerParam(n int64) ContractParam    { return ContractParam{Type: ParamInteger, Int: n} }

// ScriptBuilder acumula bytecode de invocação.
type ScriptBuilder struct {
	buf []byte
}

func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{buf: make([]byte, 0, 128)}
}

func (b *ScriptBuilder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// EmitPushBytes escolhe o PUSHDATA adequado ao tamanho do payload.
func (b *ScriptBuilder) EmitPushBytes(data []byte) {
	n := len(data)
	switch {
	case n < 0x100:
		b.buf = append(b.buf, opPushData1, byte(n))
	case n < 0x10000:
		b.buf = append(b.buf, opPushData2)
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(n))
	default:
		b.buf = append(b.buf, opPushData4)
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(n))
	}
	b.buf = append(b.buf, data...)
}

func (b *ScriptBuilder) EmitPushString(s string) {
	b.EmitPushBytes([]byte(s))
}

// EmitPushInt usa os opcodes compactos para -1..16 e PUSHINT* no restante.
func (b *ScriptBuilder) EmitPushInt(n int64) {
	switch {
	case n == -1:
		b.buf = append(b.buf, opPushM1)
	case n >= 0 && n <= 16:
		b.buf = append(b.buf, byte(opPush0+n))
	case n >= -128 && n <= 127:
		b.buf = append(b.buf, opPushInt8, byte(n))
	case n >= -32768 && n <= 32767:
		b.buf = append(b.buf, opPushInt16)
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(n))
	case n >= -2147483648 && n <= 2147483647:
		b.buf = append(b.buf, opPushInt32)
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(n))
	default:
		b.buf = append(b.buf, opPushInt64)
		b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(n))
	}
}

func (b *ScriptBuilder) emitParam(p ContractParam) error {
	switch p.Type {
	case ParamHash160:
		b.EmitPushBytes(p.Hash.BytesLE())
	case ParamByteArray:
		b.EmitPushBytes(p.Bytes)
	case ParamString:
		b.EmitPushString(p.Str)
	case ParamInteger:
		b.EmitPushInt(p.Int)
	default:
		return fmt.Errorf("unsupported param type %q", p.Type)
	}
	return nil
}

// EmitContractCall monta a chamada a um método do contrato: os argumentos
// são empilhados em ordem reversa e empacotados em array, seguidos das
// call flags, do nome do método e do script hash do contrato.
func (b *ScriptBuilder) EmitContractCall(contract Uint160, method string, params []ContractParam) error {
	if method == "" {
		return fmt.Errorf("contract method is required")
	}
	for i := len(params) - 1; i >= 0; i-- {
		if err := b.emitParam(params[i]); err != nil {
			return err
		}
	}
	b.EmitPushInt(int64(len(params)))
	b.buf = append(b.buf, opPack)
	b.EmitPushInt(callFlagsAll)
	b.EmitPushString(method)
	b.EmitPushBytes(contract.BytesLE())
	b.buf = append(b.buf, opSyscall)
	b.buf = append(b.buf, syscallContractCall[:]...)
	return nil
}
