// Package alertring implements C5: draining the per-hook event rings
// into one unified, typed async stream per hook.
package alertring

import (
	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/wire"
)

// Alert is the user-facing, typed form of a denial event. Only the
// fields relevant to Hook are meaningful; the rest are zero.
type Alert struct {
	Hook       hook.Kind
	Pid        uint32
	ImageInode uint64
	// Subject is the best-known path for ImageInode, resolved via the
	// subject resolver at fan-in time (empty if the Fanin has no
	// resolver, or if ImageInode itself is the wildcard, which a real
	// alert never carries).
	Subject string

	// FileOpen
	TargetInode   uint64
	TargetSubject string

	// Setuid
	OldUID, OldGID, NewUID, NewGID uint32

	// SocketBind / SocketConnect
	Port uint16

	// SocketConnect
	AddrV4 uint32
	AddrV6 [16]byte
	Family uint8
}

// DecodeFunc turns one raw ring record into an Alert. The Hook field
// is filled in by the caller (Fanin), not by DecodeFunc.
type DecodeFunc func(raw []byte) (Alert, error)

// DecodeExec decodes an ExecAlert record.
func DecodeExec(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.ExecAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{Pid: a.Pid, ImageInode: a.ImageInode}, nil
}

// DecodeFileOpen decodes a FileOpenAlert record.
func DecodeFileOpen(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.FileOpenAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{Pid: a.Pid, ImageInode: a.ImageInode, TargetInode: a.TargetInode}, nil
}

// DecodeCred decodes a CredAlert record.
func DecodeCred(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.CredAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{
		Pid: a.Pid, ImageInode: a.ImageInode,
		OldUID: a.OldUID, OldGID: a.OldGID,
		NewUID: a.NewUID, NewGID: a.NewGID,
	}, nil
}

// DecodeMount decodes a MountAlert record.
func DecodeMount(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.MountAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{Pid: a.Pid, ImageInode: a.ImageInode}, nil
}

// DecodeBind decodes a BindAlert record.
func DecodeBind(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.BindAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{Pid: a.Pid, ImageInode: a.ImageInode, Port: a.Port}, nil
}

// DecodeConnect decodes a ConnectAlert record.
func DecodeConnect(raw []byte) (Alert, error) {
	a, err := wire.Read[wire.ConnectAlert](raw)
	if err != nil {
		return Alert{}, err
	}
	return Alert{
		Pid: a.Pid, ImageInode: a.ImageInode,
		Port: a.Port, AddrV4: a.AddrV4, AddrV6: a.AddrV6, Family: a.Family,
	}, nil
}
