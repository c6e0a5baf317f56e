package ppu

// scanlineAttrs is scratch space reused across renderScanline calls to
// avoid a per-line allocation; it records the raw background/window color
// index and CGB BG-to-sprite priority bit for every screen column so the
// sprite pass can consult them.
type scanlineAttrs struct {
	bgIndex    [ScreenWidth]uint8
	bgPriority [ScreenWidth]bool
}

// renderScanline draws the current line (p.ly) into the framebuffer. It
// runs once, on the tick that transitions mode 3 -> mode 0, matching this
// implementation's scanline-granularity (not pixel-FIFO-accurate)
// rendering model.
func (p *PPU) renderScanline() {
	if p.ly >= ScreenHeight {
		return
	}
	var attrs scanlineAttrs
	p.renderBackgroundWindow(&attrs)
	p.renderSprites(&attrs)
}

func (p *PPU) bgWindowEnabled() bool {
	return p.cgb || p.lcdc&LCDCBGWindowEnable != 0
}

func (p *PPU) windowVisible() bool {
	return p.lcdc&LCDCWindowEnable != 0 && p.ly >= p.wy && p.wx <= 166
}

func (p *PPU) renderBackgroundWindow(attrs *scanlineAttrs) {
	row := int(p.ly) * ScreenWidth
	winVisible := p.windowVisible()
	usedWindow := false

	for x := 0; x < ScreenWidth; x++ {
		if !p.bgWindowEnabled() {
			attrs.bgIndex[x] = 0
			p.Framebuffer[row+x] = decodeDMGPalette(p.bgp, 0)
			continue
		}

		var mapBase uint16
		var tileX, tileY, pixelX, pixelY int
		if winVisible && x >= int(p.wx)-7 {
			usedWindow = true
			mapBase = windowMapBase(p.lcdc)
			wx := x - (int(p.wx) - 7)
			wy := p.windowLine
			tileX, tileY = wx/8, wy/8
			pixelX, pixelY = wx%8, wy%8
		} else {
			mapBase = bgMapBase(p.lcdc)
			bx := (int(p.scx) + x) & 0xFF
			by := (int(p.scy) + int(p.ly)) & 0xFF
			tileX, tileY = bx/8, by/8
			pixelX, pixelY = bx%8, by%8
		}

		mapIndex := uint16(tileY*32 + tileX)
		tileIDAddr := mapBase + mapIndex
		tileID := p.vram[0][tileIDAddr&0x1FFF]

		var attr uint8
		bank := 0
		if p.cgb {
			attr = p.vram[1][tileIDAddr&0x1FFF]
			if attr&0x08 != 0 {
				bank = 1
			}
			if attr&0x40 != 0 {
				pixelY = 7 - pixelY
			}
		}

		tileAddr := tileDataAddr(p.lcdc, tileID)
		rowOff := uint16(pixelY * 2)
		lo := p.vram[bank][(tileAddr+rowOff)&0x1FFF]
		hi := p.vram[bank][(tileAddr+rowOff+1)&0x1FFF]

		bit := 7 - pixelX
		if p.cgb && attr&0x20 != 0 {
			bit = pixelX
		}
		colorIndex := (hi>>bit&1)<<1 | (lo >> bit & 1)

		attrs.bgIndex[x] = colorIndex
		if p.cgb {
			attrs.bgPriority[x] = attr&0x80 != 0 && p.lcdc&LCDCBGWindowEnable != 0
			p.Framebuffer[row+x] = rgb555ToARGB(p.bgPalette.color555(attr&0x07, colorIndex))
		} else {
			p.Framebuffer[row+x] = decodeDMGPalette(p.bgp, colorIndex)
		}
	}

	if usedWindow {
		p.windowLine++
	}
}

func bgMapBase(lcdc uint8) uint16 {
	if lcdc&LCDCBGTileMap != 0 {
		return 0x1C00
	}
	return 0x1800
}

func windowMapBase(lcdc uint8) uint16 {
	if lcdc&LCDCWindowTileMap != 0 {
		return 0x1C00
	}
	return 0x1800
}

// tileDataAddr resolves a tile ID to a VRAM-relative (0-based on 0x8000)
// tile data address, honouring LCDC's addressing-mode bit.
func tileDataAddr(lcdc uint8, tileID uint8) uint16 {
	if lcdc&LCDCTileData != 0 {
		return uint16(tileID) * 16
	}
	return uint16(0x1000 + int(int8(tileID))*16)
}

// spriteEntry is one candidate sprite for the current scanline.
type spriteEntry struct {
	oamIndex int
	x, y     uint8
	tile     uint8
	attr     uint8
}

func (p *PPU) renderSprites(attrs *scanlineAttrs) {
	if p.lcdc&LCDCObjEnable == 0 {
		return
	}
	height := 8
	if p.lcdc&LCDCObjSize != 0 {
		height = 16
	}

	var candidates []spriteEntry
	for i := 0; i < 40 && len(candidates) < 10; i++ {
		base := i * 4
		y := p.oam[base]
		x := p.oam[base+1]
		tile := p.oam[base+2]
		attr := p.oam[base+3]
		screenY := int(y) - 16
		if int(p.ly) < screenY || int(p.ly) >= screenY+height {
			continue
		}
		candidates = append(candidates, spriteEntry{i, x, y, tile, attr})
	}

	row := int(p.ly) * ScreenWidth
	masterPriority := p.cgb && p.lcdc&LCDCBGWindowEnable == 0

	for x := 0; x < ScreenWidth; x++ {
		var best *spriteEntry
		for i := range candidates {
			s := &candidates[i]
			sx := int(s.x) - 8
			if x < sx || x >= sx+8 {
				continue
			}
			if best == nil || p.higherPriority(s, best) {
				best = s
			}
		}
		if best == nil {
			continue
		}

		sx := int(best.x) - 8
		lineInSprite := int(p.ly) - (int(best.y) - 16)
		if best.attr&0x40 != 0 { // Y flip
			lineInSprite = height - 1 - lineInSprite
		}
		tileID := best.tile
		if height == 16 {
			tileID &= 0xFE
			if lineInSprite >= 8 {
				tileID |= 0x01
				lineInSprite -= 8
			}
		}

		bank := 0
		if p.cgb && best.attr&0x08 != 0 {
			bank = 1
		}
		tileAddr := uint16(tileID) * 16
		rowOff := uint16(lineInSprite * 2)
		lo := p.vram[bank][(tileAddr+rowOff)&0x1FFF]
		hi := p.vram[bank][(tileAddr+rowOff+1)&0x1FFF]

		pixelX := x - sx
		if best.attr&0x20 != 0 { // X flip
			pixelX = 7 - pixelX
		}
		bit := 7 - pixelX
		colorIndex := (hi>>bit&1)<<1 | (lo >> bit & 1)
		if colorIndex == 0 {
			continue // transparent
		}

		bgIndex := attrs.bgIndex[x]
		hiddenByBG := best.attr&0x80 != 0 && bgIndex != 0
		hiddenByBG = hiddenByBG || attrs.bgPriority[x]
		if !masterPriority && hiddenByBG {
			continue
		}

		if p.cgb {
			p.Framebuffer[row+x] = rgb555ToARGB(p.objPalette.color555(best.attr&0x07, colorIndex))
		} else {
			pal := p.obp0
			if best.attr&0x10 != 0 {
				pal = p.obp1
			}
			p.Framebuffer[row+x] = decodeDMGPalette(pal, colorIndex)
		}
	}
}

// higherPriority reports whether a should be drawn on top of b when both
// cover the same screen column: DMG breaks ties by lower X then lower OAM
// index; CGB ignores X and uses OAM index alone.
func (p *PPU) higherPriority(a, b *spriteEntry) bool {
	if !p.cgb && a.x != b.x {
		return a.x < b.x
	}
	return a.oamIndex < b.oamIndex
}
