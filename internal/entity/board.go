package entity

// BoardSize - number of rows and columns.
const BoardSize = 3

// Board is indexed as Board[y][x]. It is an array, so assigning it copies every cell.
type Board [BoardSize][BoardSize]Mark

type cell struct{ x, y int }

// WinLines - rows, then columns, then both diagonals.
var WinLines = [8][3]cell{
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{2, 0}, {1, 1}, {0, 2}},
}

// InRange - reports whether (x, y) addresses a cell of the board.
func InRange(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func (that Board) At(x, y int) Mark {
	return that[y][x]
}

// Place - returns a copy of the board with mark set at (x, y).
func (that Board) Place(x, y int, mark Mark) Board {
	that[y][x] = mark
	return that
}

// Winner - returns the mark of the first completed line, or EmptyCell.
func Winner(board Board) Mark {
	for _, line := range WinLines {
		a, b, c := board.At(line[0].x, line[0].y), board.At(line[1].x, line[1].y), board.At(line[2].x, line[2].y)
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

// IsFull - true when no cell is empty.
func IsFull(board Board) bool {
	for _, row := range board {
		for _, mark := range row {
			if mark == EmptyCell {
				return false
			}
		}
	}

	return true
}
