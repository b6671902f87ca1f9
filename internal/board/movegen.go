package board

// DebugMoveValidation turns on extra diagnostic output in the UCI layer
// (position setup and bestmove checks). It is off by default.
var DebugMoveValidation bool

// GenerateLegalMoves emits every legal move for the side to move. Each move
// is legal by construction: there is no pseudo-legal pass followed by a
// check-filter. See generateMoves for the algorithm.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateMoves(ml, false)
	return ml
}

// GenerateCaptures emits only capturing moves (including promotions and
// en-passant), legal by construction, for use by quiescence search.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateMoves(ml, true)
	return ml
}

// generateMoves implements the pin-mask/check-mask legal move generator:
//  1. enemy attack map with the king removed from occupancy
//  2. king moves into unattacked squares
//  3. checkers and the resulting checkmask
//  4. four direction-separated pinmasks
//  5. per-piece-type generation restricted to checkmask and pinmask
//  6. castling
func (p *Position) generateMoves(ml *MoveList, capturesOnly bool) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	occ := p.AllOccupied
	enemies := p.Occupied[them]

	// 1-2: enemy attack map with the king removed, then king moves.
	occWithoutKing := occ &^ SquareBB(ksq)
	enemyAttacks := p.AttacksBy(them, occWithoutKing)

	kingDests := KingAttacks(ksq) &^ p.Occupied[us] &^ enemyAttacks
	if capturesOnly {
		kingDests &= enemies
	}
	for kingDests != 0 {
		ml.Add(NewMove(ksq, kingDests.PopLSB()))
	}

	// 3: checkers and checkmask.
	checkers := p.AttackersByColor(ksq, them, occ)
	switch checkers.PopCount() {
	case 0:
		p.generateCastlingMoves(ml, us, them)
	case 1:
		// Only king moves, blocks, and captures of the sole checker are legal;
		// castling is never legal while in check.
	default:
		return // double check: only the king moves already generated are legal
	}

	var checkmask Bitboard
	if checkers == 0 {
		checkmask = Universe
	} else {
		checkmask = PinRay(ksq, checkers.LSB())
	}
	if capturesOnly {
		checkmask &= enemies | checkmask&checkers
	}

	// 4: direction-separated pinmasks.
	hPin, vPin, dPin, aPin := p.Pinmasks()
	pinned := hPin | vPin | dPin | aPin

	pinmaskOf := func(sq Square) Bitboard {
		switch {
		case hPin.IsSet(sq):
			return hPin
		case vPin.IsSet(sq):
			return vPin
		case dPin.IsSet(sq):
			return dPin
		case aPin.IsSet(sq):
			return aPin
		default:
			return Universe
		}
	}

	// 5: per-piece-type generation.
	p.generatePawnMoves(ml, us, them, enemies, occ, checkmask, hPin, vPin, dPin, aPin, capturesOnly)

	knights := p.Pieces[us][Knight] &^ pinned // a pinned knight never has a legal move
	for knights != 0 {
		from := knights.PopLSB()
		dests := KnightAttacks(from) & ^p.Occupied[us] & checkmask
		if capturesOnly {
			dests &= enemies
		}
		for dests != 0 {
			ml.Add(NewMove(from, dests.PopLSB()))
		}
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		dests := BishopAttacks(from, occ) & ^p.Occupied[us] & checkmask & pinmaskOf(from)
		if capturesOnly {
			dests &= enemies
		}
		for dests != 0 {
			ml.Add(NewMove(from, dests.PopLSB()))
		}
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		dests := RookAttacks(from, occ) & ^p.Occupied[us] & checkmask & pinmaskOf(from)
		if capturesOnly {
			dests &= enemies
		}
		for dests != 0 {
			ml.Add(NewMove(from, dests.PopLSB()))
		}
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		dests := QueenAttacks(from, occ) & ^p.Occupied[us] & checkmask & pinmaskOf(from)
		if capturesOnly {
			dests &= enemies
		}
		for dests != 0 {
			ml.Add(NewMove(from, dests.PopLSB()))
		}
	}
}

// generatePawnMoves handles pushes, double pushes, captures, promotions and
// the en-passant discovered-check special case.
func (p *Position) generatePawnMoves(ml *MoveList, us, them Color, enemies, occ, checkmask, hPin, vPin, dPin, aPin Bitboard, capturesOnly bool) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occ

	var promotionRank Bitboard
	var pushDir int
	if us == White {
		promotionRank = Rank8
		pushDir = 8
	} else {
		promotionRank = Rank1
		pushDir = -8
	}

	// Pawns pinned off the file (horizontal, diagonal or antidiagonal pin)
	// cannot push at all; only a vertical pin still allows pushing.
	pushablePawns := pawns &^ (hPin | dPin | aPin)
	// Pawns pinned off a diagonal cannot capture along the other diagonal or
	// push; captures along the matching diagonal remain legal. NE/SW share
	// the file-minus-rank diagonal family; NW/SE share the file-plus-rank
	// antidiagonal family.
	diagCapturePawns := pawns &^ (hPin | vPin | aPin)
	antidiagCapturePawns := pawns &^ (hPin | vPin | dPin)

	var push1, push2, attackL, attackR Bitboard
	if us == White {
		push1 = pushablePawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = antidiagCapturePawns.NorthWest() & enemies
		attackR = diagCapturePawns.NorthEast() & enemies
	} else {
		push1 = pushablePawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = diagCapturePawns.SouthWest() & enemies
		attackR = antidiagCapturePawns.SouthEast() & enemies
	}
	push1 &= checkmask
	push2 &= checkmask
	attackL &= checkmask
	attackR &= checkmask

	if !capturesOnly {
		nonPromo := push1 & ^promotionRank
		for nonPromo != 0 {
			to := nonPromo.PopLSB()
			ml.Add(NewMove(Square(int(to)-pushDir), to))
		}
		for push2 != 0 {
			to := push2.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*pushDir), to))
		}
	}

	nonPromoL := attackL & ^promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	nonPromoR := attackR & ^promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		if !capturesOnly {
			addPromotions(ml, Square(int(to)-pushDir), to)
		} else {
			ml.Add(NewPromotion(Square(int(to)-pushDir), to, Queen))
		}
	}
	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	if p.EnPassant != NoSquare {
		p.generateEnPassant(ml, us, them, pawns, checkmask)
	}
}

// generateEnPassant handles the rare case where capturing en passant would
// expose the king to a slider check through a vacated square: both the
// capturing pawn and its victim leave the fourth/fifth rank simultaneously,
// which can open that rank, and removing the victim can open a diagonal.
func (p *Position) generateEnPassant(ml *MoveList, us, them Color, pawns, checkmask Bitboard) {
	epSq := p.EnPassant
	epBB := SquareBB(epSq)

	var epAttackers Bitboard
	var victimSq Square
	if us == White {
		epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		victimSq = epSq - 8
	} else {
		epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		victimSq = epSq + 8
	}

	// The capture must either land on the checkmask or capture the checker.
	if checkmask&(SquareBB(epSq)|SquareBB(victimSq)) == 0 {
		return
	}

	ksq := p.KingSquare[us]
	for epAttackers != 0 {
		from := epAttackers.PopLSB()
		occAfter := p.AllOccupied &^ SquareBB(from) &^ SquareBB(victimSq) | epBB
		sliders := p.Pieces[them][Rook] | p.Pieces[them][Bishop] | p.Pieces[them][Queen]
		if p.AttackersByColor(ksq, them, occAfter)&sliders != 0 {
			continue // discovered check through a vacated square
		}
		ml.Add(NewEnPassant(from, epSq))
	}
}

// addPromotions adds all four promotion moves for a pawn reaching the back rank.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastlingMoves emits castling moves. Only reachable when the side to
// move is not in check (the caller skips this while checkers != 0).
func (p *Position) generateCastlingMoves(ml *MoveList, us, them Color) {
	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 && p.AllOccupied&((1<<F1)|(1<<G1)) == 0 {
			if !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
				ml.Add(NewCastling(E1, G1))
			}
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 && p.AllOccupied&((1<<B1)|(1<<C1)|(1<<D1)) == 0 {
			if !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
				ml.Add(NewCastling(E1, C1))
			}
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 && p.AllOccupied&((1<<F8)|(1<<G8)) == 0 {
			if !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
				ml.Add(NewCastling(E8, G8))
			}
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 && p.AllOccupied&((1<<B8)|(1<<C8)|(1<<D8)) == 0 {
			if !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
				ml.Add(NewCastling(E8, C8))
			}
		}
	}
}

// MakeMove applies a move to the position and returns undo information.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		Valid:          true,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]

	// The en-passant key is only ever applied while EnPassant is non-null,
	// and EnPassant is only ever set when a capturing pawn is adjacent (see
	// below) -- so identical positions reached by different move orders
	// always hash identically.
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
		p.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = captured
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
		if captured.Type() == Pawn {
			p.PawnKey ^= zobristPiece[them][Pawn][to]
		}
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}
	p.Hash ^= zobristCastling[p.CastlingRights]

	// Only record the en-passant square when an enemy pawn could actually
	// capture it; otherwise two move orders reaching the same occupancy
	// would hash differently.
	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		epBB := SquareBB(to)
		if (epBB.East()|epBB.West())&p.Pieces[them][Pawn] != 0 {
			p.EnPassant = epSquare
			p.Hash ^= zobristEnPassant[epSquare]
		}
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()

	return undo
}

// UnmakeMove undoes a move using the stored undo information, restoring the
// position and hash bit-for-bit without recomputing either from scratch.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
	}

	p.movePiece(to, from)

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookTo, rookFrom)
	}

	if undo.CapturedPiece != NoPiece {
		if m.IsEnPassant() {
			var capturedSq Square
			if us == White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
			p.setPiece(undo.CapturedPiece, capturedSq)
		} else {
			p.setPiece(undo.CapturedPiece, to)
		}
	}
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := NewMoveList()
	p.generateMoves(ml, false)
	return ml.Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw (stalemate, 50-move, or
// insufficient material). Repetition is tracked by the search, not here.
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}
