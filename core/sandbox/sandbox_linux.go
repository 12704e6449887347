//go:build linux

package sandbox

import (
	"fmt"

	seccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/rs/zerolog"
)

// allowedSyscalls is the fixed allow-list covering ordinary memory,
// file I/O, and threading work. The Go runtime itself needs most of
// these; plugins get nothing beyond them.
var allowedSyscalls = []string{
	"read", "write", "readv", "writev", "pread64", "pwrite64",
	"open", "openat", "close", "lseek",
	"stat", "fstat", "lstat", "newfstatat", "statx",
	"getdents64", "readlink", "readlinkat", "getcwd",
	"fcntl", "ioctl", "pipe2", "dup", "dup3", "eventfd2",
	"epoll_create1", "epoll_ctl", "epoll_pwait", "epoll_wait",
	"poll", "ppoll", "pselect6",
	"mmap", "munmap", "mprotect", "mremap", "madvise", "brk",
	"membarrier",
	"futex", "clone", "clone3", "set_robust_list", "rseq",
	"sched_yield", "sched_getaffinity",
	"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "sigaltstack",
	"tgkill", "gettid", "getpid", "getrandom",
	"nanosleep", "clock_gettime", "clock_nanosleep",
	"exit", "exit_group",
	"prctl", "tkill", "restart_syscall",
}

type seccompStrategy struct {
	logger zerolog.Logger
}

func platformStrategy(logger zerolog.Logger) Strategy {
	return &seccompStrategy{logger: logger}
}

func (s *seccompStrategy) Name() string { return "seccomp-bpf" }

func (s *seccompStrategy) Available() bool { return seccomp.Supported() }

func (s *seccompStrategy) Apply() error {
	if !s.Available() {
		return fmt.Errorf("seccomp not supported by this kernel")
	}
	filter := seccomp.Filter{
		NoNewPrivs: true,
		Flag:       seccomp.FilterFlagTSync,
		Policy: seccomp.Policy{
			DefaultAction: seccomp.ActionErrno,
			Syscalls: []seccomp.SyscallGroup{
				{
					Action: seccomp.ActionAllow,
					Names:  allowedSyscalls,
				},
			},
		},
	}
	if err := seccomp.LoadFilter(filter); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}
	s.logger.Info().Int("allowed_syscalls", len(allowedSyscalls)).Msg("seccomp sandbox applied")
	return nil
}
