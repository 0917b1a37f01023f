// Package mcu describes the AVR parts whose port registers the checker knows.
package mcu

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Profile lists the I/O ports and pin range of one microcontroller.
type Profile struct {
	Name  string
	Ports []string // port letters, e.g. "B" for PORTB/DDRB/PINB
	Pins  int      // pins per port; valid pin numbers are 0..Pins-1

	ADCChannels int      // 0 when the part has no ADC
	Timers      []string // e.g. "TIMER1"
	Interrupts  []string
}

// Baseline watches only PORTB and DDRB. It is used when no part is configured.
var Baseline = Profile{
	Name:  "baseline",
	Ports: []string{"B"},
	Pins:  8,
}

var profiles = map[string]Profile{
	"atmega328p": {
		Name:        "atmega328p",
		Ports:       []string{"B", "C", "D"},
		Pins:        8,
		ADCChannels: 6,
		Timers:      []string{"TIMER0", "TIMER1", "TIMER2"},
		Interrupts:  []string{"INT0", "INT1"},
	},
	"atmega2560": {
		Name:        "atmega2560",
		Ports:       []string{"A", "B", "C", "D", "E", "F", "G"},
		Pins:        8,
		ADCChannels: 8,
		Timers:      []string{"TIMER0", "TIMER1", "TIMER2", "TIMER3", "TIMER4", "TIMER5"},
		Interrupts:  []string{"INT0", "INT1", "INT2", "INT3", "INT4", "INT5", "INT6", "INT7"},
	},
}

// Lookup returns the profile for name. An empty name selects Baseline.
func Lookup(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == Baseline.Name {
		return Baseline, nil
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown mcu %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names returns the known part names, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registers returns the watched data-direction and output registers,
// DDRx before PORTx for each port.
func (p Profile) Registers() []string {
	regs := make([]string, 0, 2*len(p.Ports))
	for _, port := range p.Ports {
		regs = append(regs, "DDR"+port, "PORT"+port)
	}
	return regs
}

// HasPort reports whether letter names one of the profile's ports.
func (p Profile) HasPort(letter string) bool {
	for _, port := range p.Ports {
		if port == letter {
			return true
		}
	}
	return false
}

// ReferencedRegister returns the first watched register mentioned on line.
func (p Profile) ReferencedRegister(line string) (string, bool) {
	for _, reg := range p.Registers() {
		if strings.Contains(line, reg) {
			return reg, true
		}
	}
	return "", false
}

// ReferencedDDR returns the first data-direction register mentioned on line.
func (p Profile) ReferencedDDR(line string) (string, bool) {
	for _, port := range p.Ports {
		if strings.Contains(line, "DDR"+port) {
			return "DDR" + port, true
		}
	}
	return "", false
}

// ReservedNames returns the constants the I/O header defines for the part:
// DDRx, PORTx, PINx and Px0..Px(Pins-1) per port, the control registers and
// vectors of each timer, the ADC registers and the external interrupts.
func (p Profile) ReservedNames() []string {
	var names []string
	for _, port := range p.Ports {
		names = append(names, "DDR"+port, "PORT"+port, "PIN"+port)
		for i := 0; i < p.Pins; i++ {
			names = append(names, "P"+port+strconv.Itoa(i))
		}
	}
	for _, timer := range p.Timers {
		n := strings.TrimPrefix(timer, "TIMER")
		names = append(names,
			"TCCR"+n+"A", "TCCR"+n+"B", "TCNT"+n, "OCR"+n+"A", "OCR"+n+"B",
			"TIMSK"+n, "TIFR"+n, timer+"_OVF_vect", timer+"_COMPA_vect")
	}
	if p.ADCChannels > 0 {
		names = append(names, "ADC", "ADCL", "ADCH", "ADMUX", "ADCSRA", "ADC_vect")
		for i := 0; i < p.ADCChannels; i++ {
			names = append(names, "ADC"+strconv.Itoa(i)+"D")
		}
	}
	names = append(names, p.Interrupts...)
	return names
}
