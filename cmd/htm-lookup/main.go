// 命令行查询：逐行执行 J2000 / CARTESIAN / NAME / ID / DOMAIN 命令
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"sky-htm/internal/htm"
	"sky-htm/internal/logger"
	"sky-htm/internal/utils"
)

// run 逐行执行命令；点查询输出 "id name"，区域查询每个区间输出 "lo hi"
// 返回失败的命令数
func run(ctx context.Context, h *htm.Interface, in io.Reader, out io.Writer) (int, error) {
	w := bufio.NewWriter(out)
	defer w.Flush()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 4096), 1024*1024)
	failed := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reply, err := h.Exec(ctx, line)
		if err != nil {
			var ie *htm.InterfaceError
			if !errors.As(err, &ie) {
				return failed, err
			}
			failed++
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if reply.Name != "" {
			fmt.Fprintf(w, "%d %s\n", reply.ID, reply.Name)
			continue
		}
		for _, iv := range reply.Ranges {
			fmt.Fprintf(w, "%d %d\n", iv.Lo, iv.Hi)
		}
	}
	return failed, sc.Err()
}

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	var opts []htm.Option
	if utils.EnvBool("HTM_COARSEN", false) {
		opts = append(opts, htm.WithCoarsening())
	}
	h := htm.NewInterface(opts...)
	var in io.Reader = os.Stdin
	if len(os.Args) > 1 {
		in = strings.NewReader(strings.Join(os.Args[1:], " ") + "\n")
	}
	failed, err := run(context.Background(), h, in, os.Stdout)
	if err != nil {
		l.Error("htm_lookup_error", "err", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(3)
	}
}
