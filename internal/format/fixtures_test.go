package format

import (
	"encoding/json"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

const sampleJSON = `{
  "report": {
    "id": "4F1A2B3C-0000-4000-8000-00000000001A",
    "version": "3.3.0",
    "type": "standard",
    "timestamp": "2024-11-21T08:30:00.123456Z",
    "process_name": "PacketTunnel"
  },
  "system": {
    "CFBundleExecutable": "PacketTunnel",
    "CFBundleExecutablePath": "/private/var/containers/Bundle/Application/PacketTunnel.app/PacketTunnel",
    "CFBundleIdentifier": "com.example.PacketTunnel",
    "CFBundleShortVersionString": "1.2.0",
    "CFBundleVersion": "42",
    "machine": "iPhone15,2",
    "system_name": "iOS",
    "system_version": "17.4",
    "os_version": "21E219",
    "cpu_arch": "arm64",
    "process_id": 812,
    "parent_process_name": "launchd",
    "parent_process_id": 1
  },
  "crash": {
    "error": {
      "type": "mach",
      "address": 0,
      "mach": {"exception_name": "EXC_BAD_ACCESS", "code_name": "KERN_INVALID_ADDRESS"},
      "signal": {"name": "SIGSEGV"}
    },
    "threads": [
      {
        "index": 0,
        "crashed": true,
        "dispatch_queue": "com.apple.main-thread",
        "backtrace": {"contents": [
          {"instruction_addr": 4374528008, "object_addr": 4374511616, "object_name": "PacketTunnel", "symbol_addr": 4374527960, "symbol_name": "-[Tunnel start]"},
          {"instruction_addr": 7501234572, "object_addr": 7501230080, "object_name": "libdispatch.dylib"}
        ]}
      },
      {
        "index": 1,
        "name": "worker",
        "backtrace": {"contents": [
          {"instruction_addr": 7501234600, "object_addr": 7501230080, "object_name": "libsystem_kernel.dylib", "symbol_addr": 7501234590, "symbol_name": "mach_msg_trap"}
        ]}
      }
    ]
  },
  "binary_images": [
    {"image_addr": 4374511616, "image_size": 65536, "name": "/private/var/containers/Bundle/Application/PacketTunnel.app/PacketTunnel", "uuid": "0A1B2C3D-4E5F-6071-8293-A4B5C6D7E8F9"}
  ]
}`

func sampleRaw() domain.RawReport {
	var raw domain.RawReport
	if err := json.Unmarshal([]byte(sampleJSON), &raw); err != nil {
		panic(err)
	}
	return raw
}
