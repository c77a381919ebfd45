package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"GoPcapDissect/internal/testutil"
)

var kinds = map[string]testutil.FileKind{
	"pcap":      testutil.KindPcap,
	"pcap-nano": testutil.KindPcapNanos,
	"pcap-gz":   testutil.KindPcapGzip,
	"pcapng":    testutil.KindPcapNg,
}

// 生成一个 UDP/TCP 交替的示例抓包文件，用于手工验证 pcapdissect
func main() {
	var (
		out    = flag.String("o", "testdata/sample.pcap", "输出文件")
		format = flag.String("format", "pcap", "文件格式: pcap, pcap-nano, pcap-gz, pcapng")
		count  = flag.Int("n", 10, "帧数")
		step   = flag.Duration("step", 10*time.Millisecond, "帧间隔")
	)
	flag.Parse()

	kind, ok := kinds[*format]
	if !ok {
		fmt.Printf("未知格式: %s\n", *format)
		flag.Usage()
		os.Exit(1)
	}

	frames := make([][]byte, 0, *count)
	for i := 0; i < *count; i++ {
		var (
			data []byte
			err  error
		)
		size := 64 << (i % 4)
		if i%2 == 0 {
			data, err = testutil.UDPFrame(size, 40000+uint16(i), 40100)
		} else {
			data, err = testutil.TCPFrame(size, 51000, 8080, uint32(1000*i))
		}
		if err != nil {
			fmt.Printf("构造第 %d 帧失败: %v\n", i+1, err)
			os.Exit(1)
		}
		frames = append(frames, data)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Printf("创建文件失败: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	packets := testutil.Sequence(time.Now().UTC().Truncate(time.Second), *step, frames...)
	if err := testutil.WriteCapture(f, kind, packets); err != nil {
		fmt.Printf("写入抓包失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ 已生成 %s (%d 帧, %s)\n", *out, *count, *format)
}
