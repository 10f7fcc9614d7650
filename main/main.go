package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/cbor"
	"github.com/mrayva/zerialize/codec/flexbuffers"
	"github.com/mrayva/zerialize/codec/json"
	"github.com/mrayva/zerialize/codec/msgpack"
	"github.com/mrayva/zerialize/codec/zera"
	"github.com/mrayva/zerialize/translate"
	"github.com/mrayva/zerialize/zbuffer"
)

func main() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()
	f, err := os.Create("mem.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	doc := build.Map(
		build.Field{Key: "name", Val: "widget"},
		build.Field{Key: "tags", Val: build.Vec("a", "b", "c")},
		build.Field{Key: "count", Val: int64(42)},
		build.Field{Key: "ratio", Val: 0.5},
	)

	protocols := []zerialize.Protocol{zera.Protocol, msgpack.Protocol, cbor.Protocol, json.Protocol, flexbuffers.Protocol}

	for i := 0; i < 10000; i++ {
		w := zera.NewWriter()
		if err := doc(w); err != nil {
			log.Fatal(err)
		}
		buf, err := w.Finish()
		if err != nil {
			log.Fatal(err)
		}

		packed, err := zbuffer.Compress(buf)
		if err != nil {
			log.Fatal(err)
		}
		unpacked, err := zbuffer.Decompress(packed)
		if err != nil {
			log.Fatal(err)
		}

		r, err := zera.NewReader(unpacked.Bytes())
		if err != nil {
			log.Fatal(err)
		}
		for _, dst := range protocols {
			if _, err := translate.Translate(dst, r); err != nil {
				log.Fatal(err)
			}
		}
	}

	pprof.WriteHeapProfile(f)
	time.Sleep(5 * time.Minute)
}
