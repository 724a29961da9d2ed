// tbprobe probes Syzygy tables for positions given as FEN arguments or
// found while replaying the games of a PGN file.
//
//	tbprobe -tb /tb/wdl345:/tb/dtz345 "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
//	tbprobe -tb /tb/syzygy -pgn games.pgn
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"

	"github.com/freeeve/tablebase/internal/chess"
	"github.com/freeeve/tablebase/internal/logx"
	"github.com/freeeve/tablebase/internal/tb"
)

func main() {
	var (
		tbPath   = flag.String("tb", os.Getenv("SYZYGY_PATH"), "tablebase search path list")
		pgnFile  = flag.String("pgn", "", "PGN file to replay and probe (empty = probe FEN args)")
		rootMode = flag.Bool("root", false, "rank the root moves instead of probing the position")
		noFifty  = flag.Bool("no-50move", false, "ignore the fifty-move rule when ranking")
	)
	flag.Parse()

	logger := logx.NewLogger()

	if *tbPath == "" {
		logger.Fatal().Msg("no tablebase path: set -tb or SYZYGY_PATH")
	}

	tbs := tb.New(tb.Config{
		Paths:                *tbPath,
		DisableFiftyMoveRule: *noFifty,
		Logger:               logger,
	})
	defer tbs.Close()

	if tbs.Size() == 0 {
		logger.Fatal().Str("path", *tbPath).Msg("no tablebases found")
	}

	if *pgnFile != "" {
		probeGames(tbs, *pgnFile, logger)
		return
	}

	if flag.NArg() == 0 {
		logger.Fatal().Msg("nothing to probe: pass FEN arguments or -pgn")
	}

	for _, fen := range flag.Args() {
		pos, err := chess.FromFEN(fen)
		if err != nil {
			logger.Error().Err(err).Msg("skipping position")
			continue
		}
		if *rootMode {
			printRoot(tbs, pos)
		} else {
			printProbe(tbs, pos)
		}
	}
}

func printProbe(tbs *tb.Tablebases, pos *chess.Position) {
	var state tb.ProbeState
	wdl := tbs.ProbeWDL(pos, &state)
	if state == tb.Fail {
		fmt.Printf("%s\tfail\n", pos.FEN())
		return
	}
	dtz := tbs.ProbeDTZ(pos, &state)
	if state == tb.Fail {
		fmt.Printf("%s\twdl=%s\tdtz=fail\n", pos.FEN(), wdl)
		return
	}
	fmt.Printf("%s\twdl=%s\tdtz=%d\n", pos.FEN(), wdl, dtz)
}

func printRoot(tbs *tb.Tablebases, pos *chess.Position) {
	rms := tb.NewRootMoves(pos)
	if !tbs.RootProbe(pos, rms) && !tbs.RootProbeWDL(pos, rms) {
		fmt.Printf("%s\tfail\n", pos.FEN())
		return
	}
	fmt.Println(pos.FEN())
	for _, rm := range rms {
		fmt.Printf("  %s\trank=%d\tscore=%d\n", rm.Move.String(), rm.TBRank, rm.TBScore)
	}
}

// probeGames replays every game and probes each position once its piece
// count has dropped within the registered tables.
func probeGames(tbs *tb.Tablebases, path string, logger zerolog.Logger) {
	parser := pgn.Games(path)

	gameNo := 0
	for game := range parser.Games {
		gameNo++
		pos := pgn.NewStartingPosition()

		for ply, mv := range game.Moves {
			if err := pgn.ApplyMove(pos, mv); err != nil {
				logger.Warn().Err(err).Int("game", gameNo).Int("ply", ply+1).Msg("stopping replay")
				break
			}

			fen := pos.ToFEN()
			if pieceCount(fen) > tbs.MaxCardinality() {
				continue
			}

			p, err := chess.FromFEN(fen)
			if err != nil {
				logger.Warn().Err(err).Int("game", gameNo).Msg("stopping replay")
				break
			}

			var state tb.ProbeState
			wdl := tbs.ProbeWDL(p, &state)
			if state == tb.Fail {
				continue
			}
			dtz := tbs.ProbeDTZ(p, &state)
			fmt.Printf("game %d ply %d\t%s\twdl=%s\tdtz=%d\n", gameNo, ply+1, fen, wdl, dtz)
		}
	}
}

// pieceCount counts the men in the board field of a FEN.
func pieceCount(fen string) int {
	board, _, _ := strings.Cut(fen, " ")
	n := 0
	for _, c := range board {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			n++
		}
	}
	return n
}
