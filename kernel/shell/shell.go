// Package shell implements the interactive command line: a fixed command
// table, line-discipline driven off a keyboard.Buffer, and handlers that
// exercise the vfs, proc, and cpu packages the way a real user would.
package shell

import (
	"io"
	"strconv"
	"strings"

	"github.com/Jithub-4pf/NanOS/device/keyboard"
	"github.com/Jithub-4pf/NanOS/kernel/cpu"
	"github.com/Jithub-4pf/NanOS/kernel/ext2"
	"github.com/Jithub-4pf/NanOS/kernel/kfmt"
	"github.com/Jithub-4pf/NanOS/kernel/mem/kheap"
	"github.com/Jithub-4pf/NanOS/kernel/proc"
	"github.com/Jithub-4pf/NanOS/kernel/version"
	"github.com/Jithub-4pf/NanOS/kernel/vfs"
)

// maxArgs bounds the number of whitespace-separated tokens a line is split
// into, matching the original's fixed MAX_ARGS.
const maxArgs = 16

// inputCap is the line buffer's capacity, matching SHELL_BUF_SIZE.
const inputCap = 256

// command describes one entry of the dispatch table: its name, the
// inclusive [min,max] bound on argc (including the command name itself,
// as argv[0]), a usage string shown on an argc mismatch, and the handler.
type command struct {
	name    string
	minArgs int
	maxArgs int
	usage   string
	run     func(s *Shell, args []string)
}

// Shell owns everything the command table's handlers touch: the mounted
// filesystem, the scheduler (for ps/uptime), the kernel heap (for
// meminfo), and the console/keyboard pair driving the read-eval loop.
type Shell struct {
	VFS   *vfs.VFS
	Sched *proc.Scheduler
	Heap  *kheap.Heap
	Out   io.Writer
	Kbd   *keyboard.Buffer

	// RebootFn is invoked by the "reboot" command. Defaults to disabling
	// interrupts and halting forever, since this core has no real reset
	// vector to jump through.
	RebootFn func()

	input []byte
}

// New returns a Shell ready to drive commands against fs/sched/heap,
// writing output to out and reading keystrokes from kbd.
func New(v *vfs.VFS, sched *proc.Scheduler, heap *kheap.Heap, out io.Writer, kbd *keyboard.Buffer) *Shell {
	return &Shell{
		VFS:      v,
		Sched:    sched,
		Heap:     heap,
		Out:      out,
		Kbd:      kbd,
		RebootFn: defaultReboot,
	}
}

// activePDTFn backs the "meminfo" command's CR3 line. Package-level and
// swappable the same way irq.go/vmm's port- and PDT-access functions are,
// so tests never execute the real privileged instruction.
var activePDTFn = cpu.ActivePDT

func defaultReboot() {
	cpu.DisableInterrupts()
	for {
		cpu.Halt()
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	kfmt.Fprintf(s.Out, format, args...)
}

// rootedPath mirrors the original's filepath[0]='/'; strcpy(filepath+1,
// name) — it always prepends a slash, even over a name that already has
// one. PathToInode tolerates the resulting doubled slash because it
// only treats a path component as present when it has nonzero length.
func rootedPath(name string) string {
	return "/" + name
}

var commands []command

func init() {
	commands = []command{
		{"help", 1, 1, "help", cmdHelp},
		{"ls", 1, 2, "ls [path]", cmdLs},
		{"cat", 2, 2, "cat <file>", cmdCat},
		{"stat", 2, 2, "stat <file>", cmdStat},
		{"clear", 1, 1, "clear", cmdClear},
		{"meminfo", 1, 1, "meminfo", cmdMeminfo},
		{"cpuinfo", 1, 1, "cpuinfo", cmdCpuinfo},
		{"ps", 1, 1, "ps", cmdPs},
		{"uptime", 1, 1, "uptime", cmdUptime},
		{"version", 1, 1, "version", cmdVersion},
		{"echo", 2, maxArgs, "echo <text...> [> file]", cmdEcho},
		{"touch", 2, 2, "touch <file>", cmdTouch},
		{"rm", 2, 2, "rm <file>", cmdRm},
		{"mkdir", 2, 2, "mkdir <dir>", cmdMkdir},
		{"rmdir", 2, 2, "rmdir <dir>", cmdRmdir},
		{"pwd", 1, 1, "pwd", cmdPwd},
		{"whoami", 1, 1, "whoami", cmdWhoami},
		{"date", 1, 1, "date", cmdDate},
		{"hexdump", 2, 2, "hexdump <file>", cmdHexdump},
		{"ln", 4, 4, "ln -s <target> <link>", cmdLn},
		{"chmod", 3, 3, "chmod <octal-mode> <file>", cmdChmod},
		{"chown", 3, 3, "chown <uid>:<gid> <file>", cmdChown},
		{"reboot", 1, 1, "reboot", cmdReboot},
	}
}

func findCommand(name string) *command {
	for i := range commands {
		if commands[i].name == name {
			return &commands[i]
		}
	}
	return nil
}

// tokenize splits line on whitespace into at most maxArgs tokens, with no
// quoting support, matching shell_tokenize.
func tokenize(line string) []string {
	fields := strings.Fields(line)
	if len(fields) > maxArgs {
		fields = fields[:maxArgs]
	}
	return fields
}

// ProcessCommand parses and dispatches one line, matching process_command.
// An empty line is a silent no-op.
func (s *Shell) ProcessCommand(line string) {
	args := tokenize(line)
	if len(args) == 0 {
		return
	}
	cmd := findCommand(args[0])
	if cmd == nil {
		s.printf("Unknown command: %s\nType 'help' for available commands.\n", args[0])
		return
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		s.printf("Usage: %s\n", cmd.usage)
		return
	}
	cmd.run(s, args)
}

func cmdHelp(s *Shell, args []string) {
	s.printf("Available commands:\n")
	s.printf("  help              - show this message\n")
	s.printf("  ls [path]         - list a directory, default /\n")
	s.printf("  cat <file>        - print a file's contents\n")
	s.printf("  stat <file>       - show inode metadata\n")
	s.printf("  clear             - clear the screen\n")
	s.printf("  meminfo           - show kernel heap usage\n")
	s.printf("  cpuinfo           - show CPU vendor and features\n")
	s.printf("  ps                - list scheduled tasks\n")
	s.printf("  uptime            - show time since boot\n")
	s.printf("  version           - show the kernel version banner\n")
	s.printf("  echo <text> [>f]  - print text, or write it to a file\n")
	s.printf("  touch <file>      - create an empty file\n")
	s.printf("  rm <file>         - remove a file\n")
	s.printf("  mkdir <dir>       - create a directory\n")
	s.printf("  rmdir <dir>       - remove an empty directory\n")
	s.printf("  pwd               - print working directory\n")
	s.printf("  whoami            - print the current user\n")
	s.printf("  date              - show uptime as h/m/s\n")
	s.printf("  hexdump <file>    - dump a file's bytes\n")
	s.printf("  ln -s <tgt> <lnk> - create a symbolic link\n")
	s.printf("  chmod <mode> <f>  - change permission bits (octal)\n")
	s.printf("  chown <u>:<g> <f> - change owner uid:gid\n")
	s.printf("  reboot            - halt the system\n")
}

func cmdLs(s *Shell, args []string) {
	dir := "/"
	if len(args) > 1 {
		dir = rootedPath(args[1])
	}
	entries, err := s.VFS.ListDirectory(dir)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	for _, e := range entries {
		tag := "[FILE] "
		switch e.Type {
		case vfs.TypeDir:
			tag = "[DIR]  "
		case vfs.TypeSymlink:
			tag = "[LINK] "
		}
		s.printf("%s%s (%d bytes)\n", tag, e.Name, e.Size)
	}
}

func cmdCat(s *Shell, args []string) {
	path := rootedPath(args[1])
	f, err := s.VFS.Open(path)
	if err != nil {
		s.printf("Error: Could not open file.\n")
		return
	}
	buf := make([]byte, 1024)
	n, rerr := s.VFS.Read(f, buf)
	s.VFS.Close(f)
	if rerr != nil {
		s.printf("Error: Could not read file.\n")
		return
	}
	s.Out.Write(buf[:n])
	s.printf("\n")
}

func cmdStat(s *Shell, args []string) {
	path := rootedPath(args[1])
	d, err := s.VFS.Stat(path)
	if err != nil {
		s.printf("Error: Could not stat file '%s'\n", args[1])
		return
	}
	typeName := "regular file"
	switch d.Type {
	case vfs.TypeDir:
		typeName = "directory"
	case vfs.TypeSymlink:
		typeName = "symbolic link"
	}
	s.printf("File: %s\n", args[1])
	s.printf("Type: %s\n", typeName)
	if d.Type == vfs.TypeSymlink {
		if target, terr := s.VFS.ReadSymlinkTarget(path); terr == nil {
			s.printf("Target: %s\n", target)
		}
	}
	s.printf("Size: %d bytes\n", d.Size)
	s.printf("Inode: %d\n", d.Inode)
	s.printf("Mode: 0%o (%s)\n", d.Mode&0777, ext2.ModeToString(d.Mode))
	s.printf("Uid: %d  Gid: %d\n", d.Uid, d.Gid)
	s.printf("Links: %d\n", d.Links)
	s.printf("Access: %s\n", ext2.FormatUptime(d.Atime))
	s.printf("Modify: %s\n", ext2.FormatUptime(d.Mtime))
	s.printf("Change: %s\n", ext2.FormatUptime(d.Ctime))
}

func cmdClear(s *Shell, args []string) {
	if clearer, ok := s.Out.(interface{ Clear() }); ok {
		clearer.Clear()
	}
}

func cmdMeminfo(s *Shell, args []string) {
	total, used, free := s.Heap.Stats()
	s.printf("Memory Information:\n")
	s.printf("  Total heap: %d KiB\n", total/1024)
	s.printf("  Used heap:  %d KiB\n", used/1024)
	s.printf("  Free heap:  %d KiB\n", free/1024)
	s.printf("  Page directory (CR3): 0x%x\n", activePDTFn())
}

func cmdCpuinfo(s *Shell, args []string) {
	s.printf("CPU vendor: %s\n", cpu.VendorString())
	features := cpu.Features()
	s.printf("Features:")
	for _, f := range features {
		s.printf(" %s", f)
	}
	s.printf("\n")
}

// padRight appends spaces until s is at least width long — kfmt's own
// width support only pads on the left, so ps's left-justified columns
// build the padding themselves rather than relying on a %-Nd verb kfmt
// doesn't implement.
func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

func cmdPs(s *Shell, args []string) {
	s.printf("PID  STATE    NAME\n")
	s.printf("---  -------  --------\n")
	current := s.Sched.Current()
	for _, t := range s.Sched.Tasks() {
		tag := "process"
		if t == current {
			tag = "current"
		}
		pid := padRight(strconv.FormatUint(uint64(t.PID), 10), 4)
		state := padRight(t.State.String(), 8)
		s.printf("%s %s %s\n", pid, state, tag)
	}
}

func cmdUptime(s *Shell, args []string) {
	ticks := s.Sched.Ticks()
	seconds := ticks / 100
	s.printf("System uptime: %s (%d ticks)\n", ext2.FormatUptime(seconds), ticks)
}

func cmdVersion(s *Shell, args []string) {
	s.printf("%s", version.Banner())
	v := version.Parsed()
	s.printf("Version components: major=%d minor=%d patch=%d\n", v.Major(), v.Minor(), v.Patch())
}

func cmdEcho(s *Shell, args []string) {
	gt := -1
	for i := 1; i < len(args); i++ {
		if args[i] == ">" {
			gt = i
			break
		}
	}
	if gt > 0 && gt < len(args)-1 {
		path := rootedPath(args[gt+1])
		if !s.VFS.Exists(path) {
			if err := s.VFS.Create(path, vfs.TypeFile); err != nil {
				s.printf("Error: Could not create file.\n")
				return
			}
		}
		f, err := s.VFS.Open(path)
		if err != nil {
			s.printf("Error: Could not open file.\n")
			return
		}
		s.VFS.Truncate(f, 0)
		msg := strings.Join(args[1:gt], " ")
		n, werr := s.VFS.Write(f, []byte(msg))
		s.VFS.Close(f)
		if werr != nil || n != len(msg) {
			s.printf("Error: Write failed.\n")
			return
		}
		s.printf("Wrote to file.\n")
		return
	}
	s.printf("%s\n", strings.Join(args[1:], " "))
}

func cmdTouch(s *Shell, args []string) {
	path := rootedPath(args[1])
	if s.VFS.Exists(path) {
		s.printf("File already exists.\n")
		return
	}
	if err := s.VFS.Create(path, vfs.TypeFile); err != nil {
		s.printf("Error: Could not create file.\n")
		return
	}
	s.printf("File created.\n")
}

func cmdRm(s *Shell, args []string) {
	path := rootedPath(args[1])
	if !s.VFS.Exists(path) {
		s.printf("File does not exist.\n")
		return
	}
	if err := s.VFS.Unlink(path); err != nil {
		s.printf("Error: Could not delete file.\n")
		return
	}
	s.printf("File deleted.\n")
}

func cmdMkdir(s *Shell, args []string) {
	path := rootedPath(args[1])
	if s.VFS.Exists(path) {
		s.printf("Directory already exists.\n")
		return
	}
	if err := s.VFS.Create(path, vfs.TypeDir); err != nil {
		s.printf("Error: Could not create directory.\n")
		return
	}
	s.printf("Directory created.\n")
}

func cmdRmdir(s *Shell, args []string) {
	path := rootedPath(args[1])
	d, err := s.VFS.Stat(path)
	if err != nil {
		s.printf("Error: Directory not found.\n")
		return
	}
	if d.Type != vfs.TypeDir {
		s.printf("Error: Not a directory.\n")
		return
	}
	if err := s.VFS.Unlink(path); err != nil {
		if strings.Contains(err.Error(), "not empty") {
			s.printf("Error: Directory not empty.\n")
		} else {
			s.printf("Error: Could not remove directory.\n")
		}
		return
	}
	s.printf("Directory removed.\n")
}

func cmdPwd(s *Shell, args []string) {
	s.printf("/\n")
}

func cmdWhoami(s *Shell, args []string) {
	s.printf("root\n")
}

func cmdDate(s *Shell, args []string) {
	seconds := s.Sched.Ticks() / 100
	s.printf("Uptime: %s\n", ext2.FormatUptime(seconds))
}

func cmdHexdump(s *Shell, args []string) {
	path := rootedPath(args[1])
	f, err := s.VFS.Open(path)
	if err != nil {
		s.printf("Error: Could not open file.\n")
		return
	}
	buf := make([]byte, 16)
	var offset uint32
	for {
		n, rerr := s.VFS.Read(f, buf)
		if rerr != nil || n == 0 {
			break
		}
		s.printf("  %d: ", offset)
		for i := 0; i < n; i++ {
			s.printf("%02x ", buf[i])
		}
		for i := n; i < 16; i++ {
			s.printf("   ")
		}
		s.printf(" |")
		for i := 0; i < n; i++ {
			c := buf[i]
			if c < 32 || c > 126 {
				c = '.'
			}
			s.Out.Write([]byte{c})
		}
		s.printf("|\n")
		offset += uint32(n)
	}
	s.VFS.Close(f)
}

func cmdLn(s *Shell, args []string) {
	if args[1] != "-s" {
		s.printf("Error: Only symbolic links are supported (use -s)\n")
		return
	}
	target := args[2]
	linkPath := rootedPath(args[3])
	if err := s.VFS.CreateSymlink(linkPath, target); err != nil {
		s.printf("Error: Could not create symbolic link.\n")
		return
	}
	s.printf("Symbolic link created.\n")
}

// parseOctal parses an all-[0-7] mode string the way chmod's manual digit
// loop does, rather than trusting strconv to reject non-octal input.
func parseOctal(s string) (uint16, bool) {
	var mode uint16
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '7' {
			return 0, false
		}
		mode = mode<<3 | uint16(s[i]-'0')
	}
	return mode, true
}

func cmdChmod(s *Shell, args []string) {
	mode, ok := parseOctal(args[1])
	if !ok {
		s.printf("Error: Invalid mode (use octal, e.g., 755)\n")
		return
	}
	path := rootedPath(args[2])
	if err := s.VFS.Chmod(path, mode); err != nil {
		s.printf("Error: Could not change permissions.\n")
		return
	}
	s.printf("Permissions changed.\n")
}

func cmdChown(s *Shell, args []string) {
	parts := strings.SplitN(args[1], ":", 2)
	if len(parts) != 2 {
		s.printf("Error: Invalid format (use uid:gid)\n")
		return
	}
	uid, uerr := strconv.ParseUint(parts[0], 10, 16)
	if uerr != nil {
		s.printf("Error: Invalid uid\n")
		return
	}
	gid, gerr := strconv.ParseUint(parts[1], 10, 16)
	if gerr != nil {
		s.printf("Error: Invalid gid\n")
		return
	}
	path := rootedPath(args[2])
	if err := s.VFS.Chown(path, uint16(uid), uint16(gid)); err != nil {
		s.printf("Error: Could not change ownership.\n")
		return
	}
	s.printf("Ownership changed.\n")
}

func cmdReboot(s *Shell, args []string) {
	s.printf("Rebooting system...\n")
	s.RebootFn()
}

// Banner prints the boot-time greeting and initial prompt, matching
// shell_process's startup text.
func (s *Shell) Banner() {
	s.printf("\nNanOS Shell with ext2 filesystem support\n")
	if s.VFS != nil {
		s.printf("Try: ls, cat <file>\n")
	} else {
		s.printf("Filesystem not available.\n")
	}
	s.printf("Type 'help' for available commands.\n")
	s.printf("\nNanOS> ")
}

// FeedKeystroke consumes one decoded character from the keyboard buffer's
// perspective — backspace drops the last pending character, newline dispatches the line
// and reprints the prompt, and any other printable character is appended.
// Unlike shell_process's direct VGA-cursor math, backspace/echo here is
// delegated entirely to s.Out: if it implements Backspace(), that is used;
// otherwise backspace is a silent line-buffer edit with no visual undo.
func (s *Shell) FeedKeystroke(c byte) {
	switch {
	case c == '\b':
		if len(s.input) > 0 {
			s.input = s.input[:len(s.input)-1]
			if eraser, ok := s.Out.(interface{ Backspace() }); ok {
				eraser.Backspace()
			}
		}
	case c == '\n':
		s.Out.Write([]byte{'\n'})
		s.ProcessCommand(string(s.input))
		s.input = s.input[:0]
		s.printf("NanOS> ")
	case c >= 32 && c <= 126:
		if len(s.input) < inputCap-1 {
			s.input = append(s.input, c)
			s.Out.Write([]byte{c})
		}
	}
}

// Run drains decoded keystrokes from Kbd and feeds them to FeedKeystroke
// until the buffer is currently empty. Called
// repeatedly from the idle loop between cpu.Halt spins, mirroring
// shell_process's poll-then-hlt structure without blocking the caller.
func (s *Shell) Run() {
	for !s.Kbd.Empty() {
		s.FeedKeystroke(s.Kbd.GetChar())
	}
}
