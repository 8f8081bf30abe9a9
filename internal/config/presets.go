package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named algorithm together with the array size and frame skip it is shown with.
type Preset struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
	Size int    `yaml:"size" json:"size"`
	Skip int    `yaml:"skip" json:"skip"`
}

// Slug returns the lowercase, dash separated form of the preset name.
func (p Preset) Slug() string { return Slug(p.Name) }

func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("preset %q: code is required", p.Name)
	}
	if p.Size <= 0 {
		return fmt.Errorf("preset %q: size must be positive, got %d", p.Name, p.Size)
	}
	if p.Skip <= 0 {
		return fmt.Errorf("preset %q: skip must be positive, got %d", p.Name, p.Skip)
	}
	return nil
}

func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Presets is the built-in catalog. Sizes are item counts; 1024 items fill a 32x32 grid.
var Presets = []Preset{
	{Name: "Bubble Sort", Code: bubbleSort, Size: 1024, Skip: 1},
	{Name: "Quicksort", Code: quickSort, Size: 1024, Skip: 1},
	{Name: "Insertion Sort", Code: insertionSort, Size: 1024, Skip: 2},
	{Name: "Selection Sort", Code: selectionSort, Size: 1024, Skip: 2},
	{Name: "Shell Sort", Code: shellSort, Size: 1024, Skip: 1},
	{Name: "Heap Sort", Code: heapSort, Size: 1024, Skip: 2},
	{Name: "Cocktail Shaker Sort", Code: cocktailShakerSort, Size: 1024, Skip: 1},
}

// Catalog is an ordered set of presets with unique slugs.
type Catalog struct {
	presets []Preset
}

func NewCatalog(presets ...Preset) *Catalog {
	c := &Catalog{}
	for _, p := range presets {
		c.Put(p)
	}
	return c
}

// DefaultCatalog returns a catalog holding the built-in presets.
func DefaultCatalog() *Catalog { return NewCatalog(Presets...) }

// Put adds p, replacing a preset with the same slug in place.
func (c *Catalog) Put(p Preset) {
	for i := range c.presets {
		if c.presets[i].Slug() == p.Slug() {
			c.presets[i] = p
			return
		}
	}
	c.presets = append(c.presets, p)
}

// Get finds a preset by display name (case insensitive) or slug.
func (c *Catalog) Get(name string) *Preset {
	slug := Slug(name)
	for i := range c.presets {
		if c.presets[i].Slug() == slug {
			p := c.presets[i]
			return &p
		}
	}
	return nil
}

func (c *Catalog) Names() []string {
	names := make([]string, len(c.presets))
	for i, p := range c.presets {
		names[i] = p.Name
	}
	return names
}

func (c *Catalog) All() []Preset {
	return append([]Preset(nil), c.presets...)
}

func (c *Catalog) Len() int { return len(c.presets) }

// At returns the preset at index i, wrapping around in both directions.
func (c *Catalog) At(i int) Preset {
	n := len(c.presets)
	return c.presets[((i%n)+n)%n]
}

func GetPreset(name string) *Preset { return DefaultCatalog().Get(name) }

func ListPresets() []string { return DefaultCatalog().Names() }

type presetsFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads a yaml catalog and merges it over the built-ins. Presets in the file
// replace built-ins with the same slug; new ones are appended in file order.
func LoadPresets(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		catalog.Put(p)
	}
	return catalog, nil
}

const bubbleSort = `const swap = (items, leftIndex, rightIndex) => {
  var temp = items[leftIndex];
  items[leftIndex] = items[rightIndex];
  items[rightIndex] = temp;
};

const oneRound = async () => {
  let sorted = true;
  for (let i = 0; i < data.length - 1; i++) {
    if (data[i] > data[i + 1]) {
      sorted = false;
      swap(data, i, i + 1);
    }
  }
  return sorted;
};

while (!(await oneRound())) {
  await snapshot();
}
`

const quickSort = `const partition = (arr, start, end) => {
  const pivotValue = arr[end];
  let pivotIndex = start;
  for (let i = start; i < end; i++) {
    if (arr[i] < pivotValue) {
      [arr[i], arr[pivotIndex]] = [arr[pivotIndex], arr[i]];
      pivotIndex++;
    }
  }
  [arr[pivotIndex], arr[end]] = [arr[end], arr[pivotIndex]];
  return pivotIndex;
};

const quickSort = async (arr, start, end) => {
  if (start >= end) return;
  let index = partition(arr, start, end);
  await snapshot();
  await quickSort(arr, start, index - 1);
  await quickSort(arr, index + 1, end);
};

await quickSort(data, 0, data.length - 1);
`

const insertionSort = `for (let i = 1; i < data.length; i++) {
  const value = data[i];
  let j = i - 1;
  while (j >= 0 && data[j] > value) {
    data[j + 1] = data[j];
    j--;
  }
  data[j + 1] = value;
  await snapshot();
}
`

const selectionSort = `for (let i = 0; i < data.length - 1; i++) {
  let min = i;
  for (let j = i + 1; j < data.length; j++) {
    if (data[j] < data[min]) min = j;
  }
  if (min !== i) {
    [data[i], data[min]] = [data[min], data[i]];
  }
  await snapshot();
}
`

const shellSort = `for (let gap = Math.floor(data.length / 2); gap > 0; gap = Math.floor(gap / 2)) {
  for (let i = gap; i < data.length; i++) {
    const value = data[i];
    let j = i;
    while (j >= gap && data[j - gap] > value) {
      data[j] = data[j - gap];
      j -= gap;
    }
    data[j] = value;
    if (i % gap === 0) await snapshot();
  }
  await snapshot();
}
`

const heapSort = `const siftDown = (start, end) => {
  let root = start;
  while (2 * root + 1 <= end) {
    let child = 2 * root + 1;
    if (child + 1 <= end && data[child] < data[child + 1]) child++;
    if (data[root] >= data[child]) return;
    [data[root], data[child]] = [data[child], data[root]];
    root = child;
  }
};

for (let start = Math.floor(data.length / 2) - 1; start >= 0; start--) {
  siftDown(start, data.length - 1);
  await snapshot();
}
for (let end = data.length - 1; end > 0; end--) {
  [data[0], data[end]] = [data[end], data[0]];
  siftDown(0, end - 1);
  await snapshot();
}
`

const cocktailShakerSort = `let start = 0;
let end = data.length - 1;
let swapped = true;
while (swapped) {
  swapped = false;
  for (let i = start; i < end; i++) {
    if (data[i] > data[i + 1]) {
      [data[i], data[i + 1]] = [data[i + 1], data[i]];
      swapped = true;
    }
  }
  end--;
  await snapshot();
  if (!swapped) break;
  swapped = false;
  for (let i = end; i > start; i--) {
    if (data[i - 1] > data[i]) {
      [data[i - 1], data[i]] = [data[i], data[i - 1]];
      swapped = true;
    }
  }
  start++;
  await snapshot();
}
`
